// Package swapcreate implements the CreateSwap operation of spec.md §2's
// data flow: mint a fresh single-use vault (C1), then record a
// pending_deposit row for it (C2). This is the one write path into the
// state machine of spec.md §3.2 that isn't driven by a poller.
package swapcreate

import (
	"context"
	"time"

	"github.com/cbbtc-swap/coordinator/apperr"
	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/common"
	"github.com/cbbtc-swap/coordinator/keyvault"
	"github.com/cbbtc-swap/coordinator/store"
	"github.com/cbbtc-swap/coordinator/token"
)

// Creator wires the KeyVault and Store together for CreateSwap, plus the
// chain registry used to validate a request's chainId (spec.md §6.1
// "400 unsupported chain").
type Creator struct {
	keyVault *keyvault.KeyVault
	store    *store.Store
	registry *chains.Registry
	expiry   time.Duration
}

func New(kv *keyvault.KeyVault, st *store.Store, registry *chains.Registry, expiry time.Duration) *Creator {
	return &Creator{keyVault: kv, store: st, registry: registry, expiry: expiry}
}

func (c *Creator) ChainRegistry() *chains.Registry { return c.registry }

// Request is the validated shape of a POST /swap body (spec.md §6.1).
type Request struct {
	Chain            chains.ID
	BuyToken         token.Token
	RecipientAddress string
	RefundAddress    string
}

// Create mints a vault, derives its address from a fresh salt, and
// records a pending_deposit Swap. Every EVM address on the request is
// normalized to EIP-55 checksum form before it is persisted (spec.md
// §6.1 "All EVM addresses are normalized to EIP-55 checksum on input").
func (c *Creator) Create(ctx context.Context, req Request) (*store.Swap, error) {
	if !c.registry.Supported(req.Chain) {
		return nil, apperr.Validation("unsupported chain", nil)
	}

	recipient, err := common.ParseChecksumAddress(req.RecipientAddress)
	if err != nil {
		return nil, apperr.Validation("invalid recipientAddress", err)
	}
	refund, err := common.ParseChecksumAddress(req.RefundAddress)
	if err != nil {
		return nil, apperr.Validation("invalid refundAddress", err)
	}

	vaultAddr, _, salt, err := c.keyVault.Mint()
	if err != nil {
		return nil, apperr.Unknown("mint vault key", err)
	}

	now := time.Now().UTC()
	sw := &store.Swap{
		SwapID:           store.NewSwapID(),
		Chain:            req.Chain,
		VaultAddress:     vaultAddr,
		VaultSalt:        salt,
		SellToken:        token.ERC20(chains.CBBTC),
		BuyToken:         req.BuyToken,
		RecipientAddress: recipient,
		RefundAddress:    refund,
		Status:           store.StatusPendingDeposit,
		CreatedAt:        now,
		ExpiresAt:        now.Add(c.expiry),
		UpdatedAt:        now,
	}

	if err := c.store.Create(ctx, sw); err != nil {
		return nil, apperr.Unknown("persist swap", err)
	}
	return sw, nil
}
