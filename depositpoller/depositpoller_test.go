package depositpoller

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/metrics"
	"github.com/cbbtc-swap/coordinator/store"
	"github.com/cbbtc-swap/coordinator/token"
)

func testSwap(vault string) *store.Swap {
	return &store.Swap{
		SwapID:       store.NewSwapID(),
		Chain:        chains.Ethereum,
		VaultAddress: ethcommon.HexToAddress(vault),
		SellToken:    token.ERC20(chains.CBBTC),
		BuyToken:     token.Ether(),
		Status:       store.StatusPendingDeposit,
	}
}

func TestVaultAddressesPreservesOrder(t *testing.T) {
	pending := []*store.Swap{
		testSwap("0x0000000000000000000000000000000000000001"),
		testSwap("0x0000000000000000000000000000000000000002"),
	}

	addrs := vaultAddresses(pending)
	assert.Equal(t, []ethcommon.Address{
		ethcommon.HexToAddress("0x0000000000000000000000000000000000000001"),
		ethcommon.HexToAddress("0x0000000000000000000000000000000000000002"),
	}, addrs)
}

func TestVaultAddressesEmptyInput(t *testing.T) {
	assert.Empty(t, vaultAddresses(nil))
}

func TestCountErrorIsNoopWithoutMetrics(t *testing.T) {
	p := &Poller{chain: chains.Ethereum}
	assert.NotPanics(t, func() { p.countError() })
}

func TestCountErrorIncrementsPollerCounter(t *testing.T) {
	reg := metrics.New()
	p := &Poller{chain: chains.Base, metrics: reg}

	p.countError()

	families, err := reg.Gatherer().Gather()
	assert.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != "cbbtc_swap_poller_errors_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "poller" && l.GetValue() == "deposit_base" {
					total = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, total)
}
