package ledger

import (
	"github.com/prometheus/client_golang/prometheus"

	"radiswap/internal/amount"
	"radiswap/internal/model"
)

// Metrics exposes instruction outcomes and pool state to Prometheus.
type Metrics struct {
	instructions *prometheus.CounterVec
	reserve      *prometheus.GaugeVec
	units        *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radiswap",
			Name:      "instructions_total",
			Help:      "Instructions executed, by kind and outcome.",
		}, []string{"kind", "status"}),
		reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radiswap",
			Name:      "pool_reserve",
			Help:      "Pool reserve per side after the last committed instruction.",
		}, []string{"pool", "side"}),
		units: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "radiswap",
			Name:      "pool_units",
			Help:      "Outstanding pool units.",
		}, []string{"pool"}),
	}
	if reg != nil {
		reg.MustRegister(m.instructions, m.reserve, m.units)
	}
	return m
}

func (m *Metrics) observeInstruction(kind, status string) {
	switch kind {
	case model.KindCreateAccount, model.KindCreateAsset, model.KindInstantiatePool,
		model.KindSwap, model.KindAddLiquidity, model.KindRemoveLiquidity, model.KindTransfer:
	default:
		kind = "unknown"
	}
	m.instructions.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) observePool(s model.PoolSnapshot) {
	m.reserve.WithLabelValues(s.Alias, "a").Set(gaugeValue(s.ReserveA))
	m.reserve.WithLabelValues(s.Alias, "b").Set(gaugeValue(s.ReserveB))
	m.units.WithLabelValues(s.Alias).Set(gaugeValue(s.TotalUnits))
}

func gaugeValue(s string) float64 {
	d, err := amount.Parse(s)
	if err != nil {
		return 0
	}
	f, err := d.Float64()
	if err != nil {
		return 0
	}
	return f
}
