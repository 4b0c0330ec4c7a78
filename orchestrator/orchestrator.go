// Package orchestrator is C10 (spec.md §4.10): the LifecycleOrchestrator
// that glues the key vault, permit builder, slippage oracle, order
// signer, orderbook client, and store into the pending_deposit ->
// executing -> {complete | refund_pending | failed} transitions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/cbbtc-swap/coordinator/chainclient"
	"github.com/cbbtc-swap/coordinator/keyvault"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/ordersigner"
	"github.com/cbbtc-swap/coordinator/orderbook"
	"github.com/cbbtc-swap/coordinator/permit"
	"github.com/cbbtc-swap/coordinator/slippage"
	"github.com/cbbtc-swap/coordinator/store"
)

// Orchestrator wires C1/C5/C6/C7/C4/C2 per spec.md §4.10. Every
// collaborator is passed in through New as a concrete component type;
// the DepositPoller depends on the Orchestrator only through its
// Dispatcher interface.
type Orchestrator struct {
	store     *store.Store
	keyVault  *keyvault.KeyVault
	backends  *chainclient.Client
	slippage  *slippage.Oracle
	orderbook *orderbook.Client
	signer    *ordersigner.Signer
	metrics   *metrics.Registry
}

func New(
	st *store.Store,
	kv *keyvault.KeyVault,
	backends *chainclient.Client,
	slip *slippage.Oracle,
	ob *orderbook.Client,
	signer *ordersigner.Signer,
	reg *metrics.Registry,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		keyVault:  kv,
		backends:  backends,
		slippage:  slip,
		orderbook: ob,
		signer:    signer,
		metrics:   reg,
	}
}

// Execute runs spec.md §4.10 steps 1-7 for one funded swap. Any failure
// after step 2 (markExecuting) is an ExecutionFailure: the swap moves to
// failed and funds remain in the vault for out-of-band recovery — this
// function never submits a refund itself.
func (o *Orchestrator) Execute(ctx context.Context, sw *store.Swap, balance *big.Int) {
	if err := o.store.RecordDeposit(ctx, sw.SwapID, "", balance); err != nil {
		logger.WithError(err).WithField("swap_id", sw.SwapID).Error("orchestrator: recordDeposit failed")
		return
	}

	if err := o.store.MarkExecuting(ctx, sw.SwapID); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			logger.WithField("swap_id", sw.SwapID).Debug("orchestrator: duplicate dispatch, another tick already claimed this swap")
			return
		}
		logger.WithError(err).WithField("swap_id", sw.SwapID).Error("orchestrator: markExecuting failed")
		return
	}

	if err := o.execute(ctx, sw, balance); err != nil {
		logger.WithError(err).WithField("swap_id", sw.SwapID).Warn("orchestrator: execution failed, marking swap failed")
		markErr := o.store.MarkFailed(ctx, sw.SwapID, err.Error())
		if markErr != nil && !errors.Is(markErr, store.ErrStateConflict) {
			logger.WithError(markErr).WithField("swap_id", sw.SwapID).Error("orchestrator: markFailed itself failed")
		}
		if markErr == nil && o.metrics != nil {
			o.metrics.SwapsFailed.Inc()
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, sw *store.Swap, balance *big.Int) error {
	_, vaultKey, err := o.keyVault.Derive(sw.VaultSalt)
	if err != nil {
		return fmt.Errorf("derive vault key: %w", err)
	}
	defer keyvault.Zero(vaultKey)

	backend, err := o.backends.Dial(ctx, sw.Chain)
	if err != nil {
		return fmt.Errorf("dial chain: %w", err)
	}

	sellToken := sw.SellToken.OnChainAddress()
	buyToken := sw.BuyToken.OnChainAddress()

	bps := o.slippage.BpsFor(ctx, sw.Chain, sellToken.Hex(), buyToken.Hex())

	quote, err := o.orderbook.Quote(ctx, sw.Chain, sellToken, buyToken, balance, sw.VaultAddress)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	built, err := permit.New(backend).Build(ctx, sw.Chain, sellToken, vaultKey, bps)
	if err != nil {
		return fmt.Errorf("build permit: %w", err)
	}

	uid, err := o.signer.SignAndSubmit(ctx, ordersigner.Request{
		Chain:          sw.Chain,
		SellToken:      sellToken,
		BuyToken:       buyToken,
		Receiver:       sw.RecipientAddress,
		SellAmount:     quote.SellAmount,
		QuoteBuyAmount: quote.BuyAmount,
		SlippageBps:    bps,
		AppDataHex:     built.AppDataHex,
		AppDataDoc:     built.AppDataDoc,
		VaultKey:       vaultKey,
	})
	if err != nil {
		return fmt.Errorf("sign and submit order: %w", err)
	}
	if o.metrics != nil {
		o.metrics.OrdersSubmitted.WithLabelValues(sw.Chain.String()).Inc()
	}

	if err := o.store.SaveOrderUID(ctx, sw.SwapID, uid); err != nil && !errors.Is(err, store.ErrStateConflict) {
		return fmt.Errorf("save order uid: %w", err)
	}
	return nil
}

// StuckExecutingGrace is the SettlementPoller's grace window for
// executing rows with no order UID (SPEC_FULL.md §9 resolution of the
// "latent issue" open question).
const StuckExecutingGrace = 10 * time.Minute
