// Package settlementpoller is C9 (spec.md §4.9): the single process-wide
// loop that expires stale pending_deposit rows, refreshes gauge metrics,
// and advances every executing swap toward a terminal state by polling
// the orderbook. Loop shape grounded the same way as depositpoller, on
// the teacher's ethsync.Synchronizer.Sync ticker/cancellation pattern.
package settlementpoller

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/orderbook"
	"github.com/cbbtc-swap/coordinator/store"
)

// Poller runs the settlement-tracking loop of spec.md §4.9.
type Poller struct {
	interval     time.Duration
	store        *store.Store
	orderbook    *orderbook.Client
	metrics      *metrics.Registry
	stuckExecGrace time.Duration
}

func New(interval time.Duration, st *store.Store, ob *orderbook.Client, reg *metrics.Registry, stuckExecutingGrace time.Duration) *Poller {
	return &Poller{
		interval:       interval,
		store:          st,
		orderbook:      ob,
		metrics:        reg,
		stuckExecGrace: stuckExecutingGrace,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick implements spec.md §4.9 steps 1-3, plus the SPEC_FULL.md §9
// resolution of the "stuck executing with no order UID" open question:
// an executing row with no cow_order_uid older than stuckExecGrace is an
// ExecutionFailure, not a silently-skipped row.
func (p *Poller) tick(ctx context.Context) {
	expired, err := p.store.ExpireOverdue(ctx)
	if err != nil {
		p.countError()
		logger.WithError(err).Warn("settlementpoller: expireOverdue failed")
	} else if expired > 0 {
		p.metrics.SwapsExpired.Add(float64(expired))
		logger.WithField("count", expired).Debug("settlementpoller: expired overdue pending_deposit swaps")
	}

	p.refreshGauges(ctx)
	p.failStuckExecuting(ctx)

	rows, err := p.store.Executing(ctx)
	if err != nil {
		p.countError()
		logger.WithError(err).Warn("settlementpoller: load executing swaps failed")
		return
	}

	for _, sw := range rows {
		if sw.CowOrderUID == "" {
			continue
		}
		if err := p.advance(ctx, sw); err != nil {
			p.countError()
			logger.WithError(err).WithField("swap_id", sw.SwapID).Warn("settlementpoller: advance failed")
		}
	}
}

func (p *Poller) refreshGauges(ctx context.Context) {
	counts, err := p.store.CountsByStatusAndChain(ctx)
	if err != nil {
		p.countError()
		logger.WithError(err).Warn("settlementpoller: countsByStatusAndChain failed")
		return
	}
	for _, c := range counts {
		p.metrics.SwapsByStatus.WithLabelValues(c.ChainID.String(), string(c.Status)).Set(float64(c.Count))
	}
}

func (p *Poller) failStuckExecuting(ctx context.Context) {
	stuck, err := p.store.StuckExecuting(ctx, p.stuckExecGrace)
	if err != nil {
		p.countError()
		logger.WithError(err).Warn("settlementpoller: stuckExecuting lookup failed")
		return
	}
	for _, sw := range stuck {
		if err := p.store.MarkFailed(ctx, sw.SwapID, "stuck executing with no order uid"); err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				continue
			}
			p.countError()
			logger.WithError(err).WithField("swap_id", sw.SwapID).Warn("settlementpoller: markFailed for stuck row failed")
			continue
		}
		logger.WithField("swap_id", sw.SwapID).Warn("settlementpoller: executing swap had no order uid past the grace window, marked failed")
		p.metrics.SwapsFailed.Inc()
	}
}

// advance implements spec.md §4.9 step 3's terminal mapping for one
// executing row with a non-null order UID.
func (p *Poller) advance(ctx context.Context, sw *store.Swap) error {
	status, err := p.orderbook.OrderStatus(ctx, sw.Chain, sw.CowOrderUID)
	if err != nil {
		return err
	}

	switch status.Status {
	case "FULFILLED":
		return p.handleFulfilled(ctx, sw, status)

	case "EXPIRED":
		if err := p.store.MarkNeedsRefund(ctx, sw.SwapID, "order expired without fill"); err != nil && !errors.Is(err, store.ErrStateConflict) {
			return err
		}
		return nil

	case "CANCELLED":
		if err := p.store.MarkNeedsRefund(ctx, sw.SwapID, "order cancelled"); err != nil && !errors.Is(err, store.ErrStateConflict) {
			return err
		}
		return nil

	case "OPEN", "PRESIGNATURE_PENDING":
		if string(sw.OrderStatus) == status.Status {
			return nil
		}
		if err := p.store.UpdateOrderStatus(ctx, sw.SwapID, store.OrderStatus(status.Status), "", nil); err != nil && !errors.Is(err, store.ErrStateConflict) {
			return err
		}
		return nil

	default:
		logger.WithField("status", status.Status).WithField("swap_id", sw.SwapID).Warn("settlementpoller: unrecognized order status")
		return nil
	}
}

func (p *Poller) handleFulfilled(ctx context.Context, sw *store.Swap, status *orderbook.OrderStatus) error {
	trades, err := p.orderbook.Trades(ctx, sw.Chain, sw.CowOrderUID)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return errors.New("settlementpoller: order FULFILLED but no settled trades reported")
	}
	trade := trades[0]

	buyAmount := status.ExecutedBuyAmount
	if buyAmount == nil {
		buyAmount = trade.BuyAmount
	}

	if err := p.store.UpdateOrderStatus(ctx, sw.SwapID, store.OrderFulfilled, trade.TxHash, buyAmount); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return nil
		}
		return err
	}

	p.metrics.FillLatency.Observe(time.Since(sw.CreatedAt).Seconds())
	return nil
}

func (p *Poller) countError() {
	if p.metrics != nil {
		p.metrics.PollerErrors.WithLabelValues("settlement").Inc()
	}
}
