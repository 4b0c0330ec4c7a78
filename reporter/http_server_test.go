package reporter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/orderbook"
	"github.com/cbbtc-swap/coordinator/swapcreate"
)

func testReporter(t *testing.T, orderbookSrv *httptest.Server) (*HttpReporter, *chains.Registry) {
	t.Helper()

	registry := chains.NewRegistry(
		chains.Config{ID: chains.Ethereum, RPCURL: "https://eth.example"},
	)
	creator := swapcreate.New(nil, nil, registry, time.Minute)

	baseURLs := map[chains.ID]string{}
	if orderbookSrv != nil {
		baseURLs[chains.Ethereum] = orderbookSrv.URL
	}
	ob := orderbook.New(baseURLs, time.Second)

	return NewHttpReporter("127.0.0.1", "0", nil, ob, creator, metrics.New(), time.Second), registry
}

func TestHealthReportsOK(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, RouteHealth, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestQuoteRejectsUnsupportedChain(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()

	payload := []byte(`{"chainId":999,"buyToken":{"type":"ether"},"sellAmount":"1000"}`)
	req := httptest.NewRequest(http.MethodPost, RouteQuote, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteRejectsNonPositiveSellAmount(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()

	payload := []byte(`{"chainId":1,"buyToken":{"type":"ether"},"sellAmount":"0"}`)
	req := httptest.NewRequest(http.MethodPost, RouteQuote, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestQuoteForwardsUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorType":"SellAmountDoesNotCoverFee"}`))
	}))
	defer upstream.Close()

	reporter, _ := testReporter(t, upstream)
	router := reporter.SetupRouter()

	payload := []byte(`{"chainId":1,"buyToken":{"type":"ether"},"sellAmount":"1000"}`)
	req := httptest.NewRequest(http.MethodPost, RouteQuote, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.CanFill)
	assert.Contains(t, resp.Message, "SellAmountDoesNotCoverFee")
}

func TestCreateSwapRejectsMissingFields(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, RouteSwap, bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateSwapRejectsUnsupportedChain(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()

	payload := []byte(`{"chainId":999,"buyToken":{"type":"ether"},"recipientAddress":"0x0000000000000000000000000000000000000001","refundAddress":"0x0000000000000000000000000000000000000002"}`)
	req := httptest.NewRequest(http.MethodPost, RouteSwap, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsRouteServesPrometheusExposition(t *testing.T) {
	reporter, _ := testReporter(t, nil)
	router := reporter.SetupRouter()
	// An empty counter vector is not exposed; give it one child first.
	reporter.metrics.PollerErrors.WithLabelValues("settlement")

	req := httptest.NewRequest(http.MethodGet, RouteMetrics, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cbbtc_swap_poller_errors_total")
}
