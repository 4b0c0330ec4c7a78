package orderbook

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/chains"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New(map[chains.ID]string{chains.Base: srv.URL}, 5*time.Second)
	return c, srv.Close
}

func TestQuoteParsesBigIntFields(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quote", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"quoteId":    "q1",
			"sellAmount": "10000",
			"buyAmount":  "9950",
			"feeAmount":  "0",
			"validTo":    1234,
		})
	})
	defer closeFn()

	q, err := c.Quote(context.Background(), chains.Base,
		ethcommon.HexToAddress("0x1"), ethcommon.HexToAddress("0x2"),
		big.NewInt(10000), ethcommon.HexToAddress("0x3"))
	require.NoError(t, err)
	assert.Equal(t, "q1", q.QuoteID)
	assert.Equal(t, big.NewInt(10000), q.SellAmount)
	assert.Equal(t, big.NewInt(9950), q.BuyAmount)
}

func TestQuoteUpstreamErrorPreservesBody(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorType":"SellAmountDoesNotCoverFee","description":"fee too high"}`))
	})
	defer closeFn()

	_, err := c.Quote(context.Background(), chains.Base,
		ethcommon.HexToAddress("0x1"), ethcommon.HexToAddress("0x2"),
		big.NewInt(1), ethcommon.HexToAddress("0x3"))
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Body, "fee too high")
}

func TestSubmitReturnsOrderUID(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode("0xdeadbeef")
	})
	defer closeFn()

	uid, err := c.Submit(context.Background(), chains.Base, Order{Kind: "sell"})
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", uid)
}

func TestOrderStatusFulfilled(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":             "fulfilled",
			"executedBuyAmount":  "9950",
			"executedSellAmount": "10000",
		})
	})
	defer closeFn()

	status, err := c.OrderStatus(context.Background(), chains.Base, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "fulfilled", status.Status)
	assert.Equal(t, big.NewInt(9950), status.ExecutedBuyAmount)
}

func TestTradesFiltersNothingButParses(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"txHash": "0x1", "buyAmount": "100", "sellAmount": "200", "blockNumber": 42},
		})
	})
	defer closeFn()

	trades, err := c.Trades(context.Background(), chains.Base, "0xabc")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "0x1", trades[0].TxHash)
	assert.Equal(t, uint64(42), trades[0].BlockNumber)
}

func TestUnconfiguredChainErrors(t *testing.T) {
	c := New(map[chains.ID]string{}, time.Second)
	_, err := c.OrderStatus(context.Background(), chains.Ethereum, "0xabc")
	require.Error(t, err)
}
