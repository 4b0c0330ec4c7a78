// Package slippage is C5 (spec.md §4.5): a per-market slippage tolerance
// lookup with a short-TTL in-process cache so the orchestrator doesn't hit
// the slippage endpoint on every order.
package slippage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/chains"
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = time.Minute

	// DefaultBps is returned whenever the upstream endpoint errors or
	// returns something unparseable, per spec.md §4.5.
	DefaultBps = 50
)

// Oracle looks up slippage tolerance for a (chain, sellToken, buyToken)
// market, caching the last-seen value for cacheTTL.
type Oracle struct {
	baseURL string
	http    *http.Client
	store   *cache.Cache
}

func New(baseURL string, timeout time.Duration) *Oracle {
	return &Oracle{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		store:   cache.New(cacheTTL, cacheCleanup),
	}
}

func marketKey(chain chains.ID, sellToken, buyToken string) string {
	return fmt.Sprintf("%d:%s:%s", chain, strings.ToLower(sellToken), strings.ToLower(buyToken))
}

type slippageResponse struct {
	Bps int `json:"bps"`
}

// BpsFor returns the slippage tolerance in basis points for the given
// market, using the 30-second cache entry if still fresh and falling
// back to DefaultBps on any network or parse error.
func (o *Oracle) BpsFor(ctx context.Context, chain chains.ID, sellToken, buyToken string) int {
	key := marketKey(chain, sellToken, buyToken)
	if cached, ok := o.store.Get(key); ok {
		return cached.(int)
	}

	bps, err := o.fetch(ctx, chain, sellToken, buyToken)
	if err != nil {
		logger.WithError(err).WithField("market", key).Warn("slippage: falling back to default bps")
		return DefaultBps
	}

	o.store.Set(key, bps, cacheTTL)
	return bps
}

func (o *Oracle) fetch(ctx context.Context, chain chains.ID, sellToken, buyToken string) (int, error) {
	url := fmt.Sprintf("%s/slippage?chainId=%d&sellToken=%s&buyToken=%s", o.baseURL, chain, sellToken, buyToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("slippage: upstream status %d", resp.StatusCode)
	}

	var out slippageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Bps, nil
}

// ApplyToBuyAmount scales buyAmount down by bps/10000 using exact integer
// arithmetic, per spec.md §4.5 and the testable property in §8.
func ApplyToBuyAmount(buyAmount *big.Int, bps int) *big.Int {
	num := new(big.Int).Mul(buyAmount, big.NewInt(10_000-int64(bps)))
	return num.Div(num, big.NewInt(10_000))
}
