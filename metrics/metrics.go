// Package metrics is C13 (SPEC_FULL.md §4 C13): a Prometheus registry
// for the gauges, histogram, and error counters the pollers and the
// HTTP layer report into, plus an optional remote-write pusher for
// Grafana Cloud.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry wraps the collectors this coordinator exposes. It is a
// process-wide singleton, passed to each component's constructor rather
// than reached for as a package global (spec.md §9 "Singletons -> explicit
// holders").
type Registry struct {
	reg *prometheus.Registry

	SwapsByStatus   *prometheus.GaugeVec
	FillLatency     prometheus.Histogram
	PollerErrors    *prometheus.CounterVec
	SwapsExpired    prometheus.Counter
	SwapsFailed     prometheus.Counter
	OrdersSubmitted *prometheus.CounterVec
}

// New builds a fresh registry and registers every collector on it in a
// single MustRegister call, which panics if any registration fails.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		SwapsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cbbtc_swap",
			Name:      "swaps_by_status",
			Help:      "Current count of swap rows by chain and status, refreshed each SettlementPoller tick.",
		}, []string{"chain", "status"}),

		FillLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cbbtc_swap",
			Name:      "fill_latency_seconds",
			Help:      "Seconds between swap creation and order fulfillment.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // ~1s .. ~2h
		}),

		PollerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cbbtc_swap",
			Name:      "poller_errors_total",
			Help:      "Errors caught and logged by a poller iteration, by poller name.",
		}, []string{"poller"}),

		SwapsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cbbtc_swap",
			Name:      "swaps_expired_total",
			Help:      "Total pending_deposit swaps moved to expired.",
		}),

		SwapsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cbbtc_swap",
			Name:      "swaps_failed_total",
			Help:      "Total swaps moved to failed (ExecutionFailure).",
		}),

		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cbbtc_swap",
			Name:      "orders_submitted_total",
			Help:      "Total orders submitted to the orderbook, by chain.",
		}, []string{"chain"}),
	}

	reg.MustRegister(
		r.SwapsByStatus,
		r.FillLatency,
		r.PollerErrors,
		r.SwapsExpired,
		r.SwapsFailed,
		r.OrdersSubmitted,
	)
	return r
}

// Gatherer exposes the underlying registry for a promhttp handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// PushConfig holds the optional Grafana Cloud remote-write target
// (spec.md §6.4's GRAFANA_CLOUD_* variables).
type PushConfig struct {
	URL      string
	Username string
	APIKey   string
	Interval time.Duration
}

// StartPusher runs a background remote-write loop until ctx is
// cancelled. With a zero PushConfig.URL, the pusher never starts and
// /metrics still serves local exposition text — the teacher's pattern
// of "absent config, component is a no-op" per SPEC_FULL.md C13.
func (r *Registry) StartPusher(ctx context.Context, cfg PushConfig) {
	if cfg.URL == "" {
		return
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}

	pusher := push.New(cfg.URL, "cbbtc_swap_coordinator").
		Gatherer(r.reg).
		BasicAuth(cfg.Username, cfg.APIKey)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = pusher.Push()
		}
	}
}
