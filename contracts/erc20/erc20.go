// Package erc20 is a hand-trimmed binding for the slice of the ERC-20 +
// EIP-2612 ABI this coordinator actually calls: balanceOf, nonces, and the
// permit calldata encoder. Modeled on the abigen output style the teacher
// repo checks in (contracts/TWBTC), but written by hand since the
// coordinator only ever calls three methods on CBBTC.
package erc20

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"nonces","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"value","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"name":"permit","outputs":[],"type":"function"}
]`

var parsedABI abi.ABI

func init() {
	a, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		panic(err)
	}
	parsedABI = a
}

// Caller is the subset of go-ethereum's bind.ContractBackend this package
// needs for read-only calls; the shared chainclient satisfies it.
type Caller interface {
	bind.ContractCaller
}

type ERC20 struct {
	address ethcommon.Address
	bound   *bind.BoundContract
}

func New(address ethcommon.Address, backend bind.ContractBackend) *ERC20 {
	return &ERC20{
		address: address,
		bound:   bind.NewBoundContract(address, parsedABI, backend, backend, backend),
	}
}

func (e *ERC20) Address() ethcommon.Address { return e.address }

func (e *ERC20) BalanceOf(ctx context.Context, owner ethcommon.Address) (*big.Int, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := e.bound.Call(opts, &out, "balanceOf", owner); err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (e *ERC20) Nonces(ctx context.Context, owner ethcommon.Address) (*big.Int, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := e.bound.Call(opts, &out, "nonces", owner); err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PackPermit ABI-encodes the permit(...) calldata used as the pre-hook
// call data in the order's app-data document (spec.md §4.6 step 3).
func PackPermit(owner, spender ethcommon.Address, value, deadline *big.Int, v uint8, r, s [32]byte) ([]byte, error) {
	return parsedABI.Pack("permit", owner, spender, value, deadline, v, r, s)
}
