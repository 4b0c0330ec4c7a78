// Package chains holds the small closed set of EVM chains this coordinator
// supports, plus the well-known contract addresses shared across all of
// them (spec.md §6.2).
package chains

import (
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ID is the closed set of chain tags a swap may name.
type ID uint64

const (
	Ethereum ID = 1
	Base     ID = 8453
)

func (id ID) String() string {
	switch id {
	case Ethereum:
		return "ethereum"
	case Base:
		return "base"
	default:
		return fmt.Sprintf("chain-%d", uint64(id))
	}
}

var (
	// SettlementContract is the GPv2 settlement domain's verifying contract,
	// identical on every chain this coordinator supports.
	SettlementContract = ethcommon.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")

	// VaultRelayer is the permit spender: the GPv2 vault relayer contract.
	VaultRelayer = ethcommon.HexToAddress("0xC92E8bdf79f0507f65a392b0ab4667716BFE0110")

	// CBBTC is the sell-side token address, identical on chain 1 and 8453.
	CBBTC = ethcommon.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf")

	// Multicall3 is the batched-read aggregator contract, identical across
	// supported chains.
	Multicall3 = ethcommon.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

	// NativeSentinel is the address the orderbook uses to mean "native ETH"
	// on the buy side of an order.
	NativeSentinel = ethcommon.HexToAddress("0xEeeeeEeeeEeEeeeeeeeeeeeeeeeeeeeeeeeeEEeE")
)

const (
	CBBTCPermitName    = "Coinbase Wrapped BTC"
	CBBTCPermitVersion = "2"

	SettlementDomainName    = "Gnosis Protocol"
	SettlementDomainVersion = "v2"
)

// Config describes one supported chain: where to reach it over RPC and how
// often its deposit poller should tick.
type Config struct {
	ID              ID
	RPCURL          string
	PollingInterval time.Duration
}

// Registry is the closed set of chains this process serves. All returns
// them in no particular order.
type Registry struct {
	byID map[ID]Config
}

func NewRegistry(cfgs ...Config) *Registry {
	r := &Registry{byID: make(map[ID]Config, len(cfgs))}
	for _, c := range cfgs {
		r.byID[c.ID] = c
	}
	return r
}

func (r *Registry) Get(id ID) (Config, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) Supported(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}
