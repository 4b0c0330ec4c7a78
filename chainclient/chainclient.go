// Package chainclient wraps go-ethereum's ethclient the way the teacher's
// etherman package does: a narrow interface over the concrete client so
// tests can substitute a simulated backend, with one live connection kept
// per supported chain.
package chainclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cbbtc-swap/coordinator/chains"
)

// Backend is the subset of go-ethereum's client surface every on-chain
// reader in this coordinator needs: contract calls and batched reads, no
// transaction signing/sending (the coordinator never sends a transaction
// itself — it only signs off-chain orders and permits).
type Backend interface {
	ethereum.ChainReader
	ethereum.ContractCaller
	bind.ContractBackend
}

// Client multiplexes a live ethclient per chain ID.
type Client struct {
	mu       sync.RWMutex
	backends map[chains.ID]Backend
	registry *chains.Registry
}

func New(registry *chains.Registry) *Client {
	return &Client{backends: make(map[chains.ID]Backend), registry: registry}
}

// Dial lazily connects to a chain's RPC endpoint the first time it is
// needed and caches the connection for the process lifetime.
func (c *Client) Dial(ctx context.Context, id chains.ID) (Backend, error) {
	c.mu.RLock()
	b, ok := c.backends[id]
	c.mu.RUnlock()
	if ok {
		return b, nil
	}

	cfg, ok := c.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("chainclient: chain %s is not configured", id)
	}

	dialed, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial chain %s: %w", id, err)
	}

	c.mu.Lock()
	c.backends[id] = dialed
	c.mu.Unlock()

	return dialed, nil
}

// WithBackend injects a pre-built backend (a simulated chain in tests).
func (c *Client) WithBackend(id chains.ID, b Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends[id] = b
}
