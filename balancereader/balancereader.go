// Package balancereader implements C3 (spec.md §4.3): batching CBBTC
// balanceOf reads across many per-swap vault addresses into as few RPC
// round trips as Multicall3's calldata size will allow.
package balancereader

import (
	"context"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/cbbtc-swap/coordinator/chainclient"
	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/contracts/multicall3"
)

// MaxBatchSize caps how many owners go into a single aggregate3 call.
// Multicall3 has no hard ceiling of its own, but RPC providers commonly
// reject call data or responses past a few thousand entries; 7,500 keeps
// a single batch comfortably inside that margin (spec.md §4.3).
const MaxBatchSize = 7500

// Reader batches balanceOf reads for one chain's Multicall3 deployment.
type Reader struct {
	backends *chainclient.Client
}

func New(backends *chainclient.Client) *Reader {
	return &Reader{backends: backends}
}

// Batch returns CBBTC balances for owners, in the same order, chunking
// the request across as many aggregate3 calls as needed. A failure on
// any chunk's RPC round trip fails the whole batch: spec.md §4.3 treats
// a per-owner revert as zero, but a transport failure is not a per-owner
// revert and must not silently zero out a chunk of vaults.
func (r *Reader) Batch(ctx context.Context, chain chains.ID, owners []ethcommon.Address) ([]*big.Int, error) {
	backend, err := r.backends.Dial(ctx, chain)
	if err != nil {
		return nil, fmt.Errorf("balancereader: dial chain %s: %w", chain, err)
	}
	mc := multicall3.New(chains.Multicall3, backend)

	out := make([]*big.Int, 0, len(owners))
	for start := 0; start < len(owners); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(owners) {
			end = len(owners)
		}

		chunk, err := mc.AggregateBalanceOf(ctx, chains.CBBTC, owners[start:end])
		if err != nil {
			return nil, fmt.Errorf("balancereader: aggregate3 chain %s [%d:%d]: %w", chain, start, end, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
