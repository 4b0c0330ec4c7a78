// Package multicall3 binds the well-known Multicall3 aggregator contract
// (spec.md §6.2) this coordinator uses to batch CBBTC balanceOf reads
// across many vault addresses into one RPC round trip.
package multicall3

import (
	"context"
	"math/big"
	"strings"

	"github.com/cbbtc-swap/coordinator/contracts/erc20"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const ABIJSON = `[
	{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}
]`

var parsedABI abi.ABI

func init() {
	a, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(err)
	}
	parsedABI = a
}

// Call3 mirrors the Solidity struct Multicall3.Call3.
type Call3 struct {
	Target       ethcommon.Address
	AllowFailure bool
	CallData     []byte
}

// Result mirrors Multicall3.Result.
type Result struct {
	Success    bool
	ReturnData []byte
}

type Multicall3 struct {
	address ethcommon.Address
	bound   *bind.BoundContract
	abi     abi.ABI
}

func New(address ethcommon.Address, backend bind.ContractBackend) *Multicall3 {
	return &Multicall3{
		address: address,
		bound:   bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		abi:     parsedABI,
	}
}

// AggregateBalanceOf calls balanceOf(owner) for every owner in one
// aggregate3 call and decodes each cell, reporting a failed cell as zero
// per spec.md §4.3 rather than propagating a per-cell revert.
func (m *Multicall3) AggregateBalanceOf(ctx context.Context, token ethcommon.Address, owners []ethcommon.Address) ([]*big.Int, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(erc20.ABIJSON))
	if err != nil {
		return nil, err
	}

	calls := make([]Call3, len(owners))
	for i, owner := range owners {
		data, err := erc20ABI.Pack("balanceOf", owner)
		if err != nil {
			return nil, err
		}
		calls[i] = Call3{Target: token, AllowFailure: true, CallData: data}
	}

	var raw []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := m.bound.Call(opts, &raw, "aggregate3", calls); err != nil {
		return nil, err
	}

	// abi.Call returns the tuple[] as a dynamically generated anonymous
	// struct type; convert it into our named Result the same way abigen
	// output does, via abi.ConvertType.
	results := *abi.ConvertType(raw[0], new([]Result)).(*[]Result)

	balances := make([]*big.Int, len(owners))
	for i, r := range results {
		balances[i] = big.NewInt(0)
		if !r.Success {
			continue
		}
		unpacked, err := erc20ABI.Unpack("balanceOf", r.ReturnData)
		if err != nil || len(unpacked) != 1 {
			continue
		}
		if v, ok := unpacked[0].(*big.Int); ok {
			balances[i] = v
		}
	}
	return balances, nil
}
