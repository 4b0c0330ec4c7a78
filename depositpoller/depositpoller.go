// Package depositpoller is C8 (spec.md §4.8): one timed loop per
// supported chain that loads pending_deposit swaps, batch-reads their
// vault balances, and dispatches funded ones to the LifecycleOrchestrator
// without blocking the loop itself. The loop shape (ticker + a shared
// stop signal observed at the top of each iteration) is modeled on the
// teacher's ethsync.Synchronizer.Sync, generalized from one finalized-
// block ticker to one poller per chain (spec.md §9 "Timer loops, not
// coroutines").
package depositpoller

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/balancereader"
	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/store"
)

// Dispatcher is the narrow slice of the LifecycleOrchestrator (C10) this
// poller depends on, injected so tests can substitute a fake rather than
// wire a real orchestrator (spec.md §9 "cyclic collaborator graph").
type Dispatcher interface {
	Execute(ctx context.Context, sw *store.Swap, balance *big.Int)
}

// Poller runs one chain's deposit-detection loop.
type Poller struct {
	chain      chains.ID
	interval   time.Duration
	store      *store.Store
	balances   *balancereader.Reader
	dispatcher Dispatcher
	metrics    *metrics.Registry
}

func New(chain chains.ID, interval time.Duration, st *store.Store, br *balancereader.Reader, d Dispatcher, reg *metrics.Registry) *Poller {
	return &Poller{
		chain:      chain,
		interval:   interval,
		store:      st,
		balances:   br,
		dispatcher: d,
		metrics:    reg,
	}
}

// Run ticks every interval until ctx is cancelled, observing the
// cancellation at the top of each iteration (spec.md §5 "Cancellation"):
// a tick already in progress, including its dispatched orchestrator
// calls, is allowed to finish.
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

// tick implements spec.md §4.8 steps 1-4. A tick never bubbles an error
// to the caller: it logs, counts, and moves on (spec.md §7 "Pollers
// never bubble errors").
func (p *Poller) tick(ctx context.Context) {
	pending, err := p.store.PendingByChain(ctx, p.chain)
	if err != nil {
		p.countError()
		logger.WithError(err).WithField("chain", p.chain).Warn("depositpoller: load pending swaps failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	balances, err := p.balances.Batch(ctx, p.chain, vaultAddresses(pending))
	if err != nil {
		p.countError()
		logger.WithError(err).WithField("chain", p.chain).Warn("depositpoller: balance batch failed, skipping chain this tick")
		return
	}

	for i, sw := range pending {
		bal := balances[i]
		if bal == nil || bal.Sign() <= 0 {
			continue
		}
		// Dispatch asynchronously: the poller must not block on an
		// in-flight orchestrator call, and two consecutive ticks on the
		// same chain may overlap (spec.md §4.8 step 4, §5). The store's
		// status-gated markExecuting ensures at most one dispatch wins.
		go p.dispatcher.Execute(context.Background(), sw, bal)
	}
}

func (p *Poller) countError() {
	if p.metrics != nil {
		p.metrics.PollerErrors.WithLabelValues("deposit_" + p.chain.String()).Inc()
	}
}

func vaultAddresses(pending []*store.Swap) []ethcommon.Address {
	out := make([]ethcommon.Address, len(pending))
	for i, sw := range pending {
		out[i] = sw.VaultAddress
	}
	return out
}
