package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollectorOnce(t *testing.T) {
	reg := New()
	// A label vector with no children is not part of Gather's output, so
	// give each vector one child before gathering.
	reg.SwapsByStatus.WithLabelValues("base", "executing")
	reg.PollerErrors.WithLabelValues("settlement")
	reg.OrdersSubmitted.WithLabelValues("base")

	families, err := reg.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"cbbtc_swap_swaps_by_status",
		"cbbtc_swap_fill_latency_seconds",
		"cbbtc_swap_poller_errors_total",
		"cbbtc_swap_orders_submitted_total",
	} {
		assert.Contains(t, names, want)
	}
}

func TestStartPusherNoopWithoutURL(t *testing.T) {
	reg := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		reg.StartPusher(ctx, PushConfig{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartPusher with empty URL should return immediately")
	}
}

func TestSwapsExpiredAndFailedAreIndependentCounters(t *testing.T) {
	reg := New()
	reg.SwapsExpired.Add(3)
	reg.SwapsFailed.Inc()

	families, err := reg.Gatherer().Gather()
	require.NoError(t, err)

	var expired, failed float64
	for _, f := range families {
		switch f.GetName() {
		case "cbbtc_swap_swaps_expired_total":
			expired = f.GetMetric()[0].GetCounter().GetValue()
		case "cbbtc_swap_swaps_failed_total":
			failed = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, expired)
	assert.Equal(t, 1.0, failed)
}
