// Package orderbook is C4 (spec.md §4.4): a thin, well-typed wrapper over
// the external settlement orderbook's HTTP API. Every method takes a
// context and does exactly one HTTP round trip; retries belong to the
// caller (the pollers retry implicitly on their next tick, per spec.md
// §7 UpstreamError semantics).
package orderbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/cbbtc-swap/coordinator/chains"
)

// Client talks to one orderbook deployment (the pack supports one API
// base URL per chain, matching the real CoW Protocol API surface).
type Client struct {
	baseURLs map[chains.ID]string
	http     *http.Client
}

func New(baseURLs map[chains.ID]string, timeout time.Duration) *Client {
	return &Client{
		baseURLs: baseURLs,
		http:     &http.Client{Timeout: timeout},
	}
}

// UpstreamError preserves the orderbook's verbatim error message so the
// HTTP layer can forward it unmodified, per spec.md §4.4 "quote" and §6.1.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("orderbook: upstream status %d: %s", e.StatusCode, e.Body)
}

type Quote struct {
	QuoteID    string   `json:"quoteId"`
	SellAmount *big.Int `json:"-"`
	BuyAmount  *big.Int `json:"-"`
	FeeAmount  *big.Int `json:"-"`
	ValidTo    uint32   `json:"validTo"`
}

type quoteWire struct {
	QuoteID    string `json:"quoteId"`
	SellAmount string `json:"sellAmount"`
	BuyAmount  string `json:"buyAmount"`
	FeeAmount  string `json:"feeAmount"`
	ValidTo    uint32 `json:"validTo"`
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	var w quoteWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sell, ok := new(big.Int).SetString(w.SellAmount, 10)
	if !ok {
		return fmt.Errorf("orderbook: malformed sellAmount %q", w.SellAmount)
	}
	buy, ok := new(big.Int).SetString(w.BuyAmount, 10)
	if !ok {
		return fmt.Errorf("orderbook: malformed buyAmount %q", w.BuyAmount)
	}
	fee, ok := new(big.Int).SetString(w.FeeAmount, 10)
	if !ok {
		fee = big.NewInt(0)
	}
	*q = Quote{QuoteID: w.QuoteID, SellAmount: sell, BuyAmount: buy, FeeAmount: fee, ValidTo: w.ValidTo}
	return nil
}

// Quote requests an advisory price for selling sellAmount of sellToken
// into buyToken, from the given owner (spec.md §4.4, §4.10 step 5).
func (c *Client) Quote(ctx context.Context, chain chains.ID, sellToken, buyToken ethcommon.Address, sellAmount *big.Int, from ethcommon.Address) (*Quote, error) {
	reqBody := map[string]interface{}{
		"sellToken": sellToken.Hex(),
		"buyToken":  buyToken.Hex(),
		"from":      from.Hex(),
		"kind":      "sell",
		"sellAmountBeforeFee": sellAmount.String(),
	}

	var quote Quote
	if err := c.post(ctx, chain, "/api/v1/quote", reqBody, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// UploadAppData is idempotent: the orderbook stores the document keyed
// by its own hash, so repeated uploads of the same document are no-ops
// server-side (spec.md §4.4, §4.6 step 5).
func (c *Client) UploadAppData(ctx context.Context, chain chains.ID, appDataHex string, document json.RawMessage) error {
	body := map[string]interface{}{
		"fullAppData": string(document),
	}
	return c.post(ctx, chain, fmt.Sprintf("/api/v1/app_data/%s", appDataHex), body, nil)
}

// Order mirrors the GPv2 order fields OrderSigner (C7) produces.
type Order struct {
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	Receiver          string `json:"receiver"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	ValidTo           uint32 `json:"validTo"`
	AppData           string `json:"appData"`
	FeeAmount         string `json:"feeAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	SellTokenBalance  string `json:"sellTokenBalance"`
	BuyTokenBalance   string `json:"buyTokenBalance"`
	SigningScheme     string `json:"signingScheme"`
	Signature         string `json:"signature"`
	From              string `json:"from"`
}

// Submit posts a fully-signed order and returns the orderbook-assigned
// order UID (spec.md §4.4, §4.7).
func (c *Client) Submit(ctx context.Context, chain chains.ID, order Order) (string, error) {
	var uid string
	if err := c.post(ctx, chain, "/api/v1/orders", order, &uid); err != nil {
		return "", err
	}
	return uid, nil
}

// OrderStatus is the terminal/sub-status mapping of spec.md §4.9.
type OrderStatus struct {
	Status              string   `json:"status"`
	ExecutedBuyAmount   *big.Int `json:"-"`
	ExecutedSellAmount  *big.Int `json:"-"`
}

type orderStatusWire struct {
	Status             string `json:"status"`
	ExecutedBuyAmount  string `json:"executedBuyAmount"`
	ExecutedSellAmount string `json:"executedSellAmount"`
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var w orderStatusWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Status = w.Status
	s.ExecutedBuyAmount, _ = new(big.Int).SetString(w.ExecutedBuyAmount, 10)
	s.ExecutedSellAmount, _ = new(big.Int).SetString(w.ExecutedSellAmount, 10)
	return nil
}

func (c *Client) OrderStatus(ctx context.Context, chain chains.ID, uid string) (*OrderStatus, error) {
	var status OrderStatus
	if err := c.get(ctx, chain, fmt.Sprintf("/api/v1/orders/%s/status", uid), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Trade is a single fill as the orderbook's trades endpoint reports it.
// Trades returns the list unfiltered, and its caller does not filter it
// either.
type Trade struct {
	TxHash      string   `json:"txHash"`
	BuyAmount   *big.Int `json:"-"`
	SellAmount  *big.Int `json:"-"`
	BlockNumber uint64   `json:"blockNumber"`
}

type tradeWire struct {
	TxHash      string `json:"txHash"`
	BuyAmount   string `json:"buyAmount"`
	SellAmount  string `json:"sellAmount"`
	BlockNumber uint64 `json:"blockNumber"`
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var w tradeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	buy, _ := new(big.Int).SetString(w.BuyAmount, 10)
	sell, _ := new(big.Int).SetString(w.SellAmount, 10)
	*t = Trade{TxHash: w.TxHash, BuyAmount: buy, SellAmount: sell, BlockNumber: w.BlockNumber}
	return nil
}

func (c *Client) Trades(ctx context.Context, chain chains.ID, uid string) ([]Trade, error) {
	var trades []Trade
	if err := c.get(ctx, chain, fmt.Sprintf("/api/v1/trades?orderUid=%s", uid), &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (c *Client) post(ctx context.Context, chain chains.ID, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("orderbook: encode request: %w", err)
	}
	return c.do(ctx, chain, http.MethodPost, path, bytes.NewReader(buf), out)
}

func (c *Client) get(ctx context.Context, chain chains.ID, path string, out interface{}) error {
	return c.do(ctx, chain, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, chain chains.ID, method, path string, body io.Reader, out interface{}) error {
	base, ok := c.baseURLs[chain]
	if !ok {
		return fmt.Errorf("orderbook: no base URL configured for chain %s", chain)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("orderbook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("orderbook: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("orderbook: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("orderbook: decode response: %w", err)
	}
	return nil
}
