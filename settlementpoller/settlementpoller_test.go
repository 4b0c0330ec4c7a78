package settlementpoller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cbbtc-swap/coordinator/metrics"
)

func TestCountErrorIsNoopWithoutMetrics(t *testing.T) {
	p := &Poller{}
	assert.NotPanics(t, func() { p.countError() })
}

func TestCountErrorIncrementsSettlementCounter(t *testing.T) {
	reg := metrics.New()
	p := &Poller{metrics: reg}

	p.countError()
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
				if l.GetName() == "poller" && l.GetValue() == "settlement" {
					total = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, total)
}
