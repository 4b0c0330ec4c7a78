package slippage

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/chains"
)

func TestApplyToBuyAmountExactIntegerMath(t *testing.T) {
	got := ApplyToBuyAmount(big.NewInt(10_000), 50)
	require.Equal(t, big.NewInt(9_950), got)

	got = ApplyToBuyAmount(big.NewInt(3), 1)
	require.Equal(t, big.NewInt(2), got) // floor(3 * 9999 / 10000) = 2
}

func TestBpsForCachesWithinTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(slippageResponse{Bps: 75})
	}))
	defer srv.Close()

	o := New(srv.URL, time.Second)

	first := o.BpsFor(context.Background(), chains.Base, "0xsell", "0xbuy")
	second := o.BpsFor(context.Background(), chains.Base, "0xSELL", "0xBUY") // case-insensitive key
	require.Equal(t, 75, first)
	require.Equal(t, 75, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestBpsForFallsBackToDefaultOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := New(srv.URL, time.Second)
	got := o.BpsFor(context.Background(), chains.Base, "0xsell", "0xbuy")
	assert.Equal(t, DefaultBps, got)
}
