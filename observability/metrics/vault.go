package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type VaultMetrics struct {
	operations    *prometheus.CounterVec
	stabilityFees prometheus.Counter
	seized        *prometheus.CounterVec
	debtMinted    prometheus.Counter
	debtRetired   prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Count of completed vault operations by kind.",
			}, []string{"op"}),
			stabilityFees: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "vault",
				Name:      "stability_fees_total",
				Help:      "Cumulative stability fees charged in liability base units.",
			}),
			seized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "vault",
				Name:      "collateral_seized_total",
				Help:      "Cumulative collateral seized through liquidation by asset.",
			}, []string{"asset"}),
			debtMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "vault",
				Name:      "debt_minted_total",
				Help:      "Cumulative liability units minted against collateral.",
			}),
			debtRetired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "vault",
				Name:      "debt_retired_total",
				Help:      "Cumulative liability units burned through repayment and liquidation.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.operations,
			vaultRegistry.stabilityFees,
			vaultRegistry.seized,
			vaultRegistry.debtMinted,
			vaultRegistry.debtRetired,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) ObserveOperation(op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(op).Inc()
}

func (m *VaultMetrics) AddStabilityFee(fee float64) {
	if m == nil || fee <= 0 {
		return
	}
	m.stabilityFees.Add(fee)
}

func (m *VaultMetrics) AddSeizedCollateral(asset string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		asset = "unknown"
	}
	m.seized.WithLabelValues(asset).Add(amount)
}

func (m *VaultMetrics) AddDebtMinted(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.debtMinted.Add(amount)
}

func (m *VaultMetrics) AddDebtRetired(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.debtRetired.Add(amount)
}
