package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	height     prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of ledger operations by name and result.",
			}, []string{"op", "result"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "meridian",
				Subsystem: "ledger",
				Name:      "operation_seconds",
				Help:      "Wall-clock duration of ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "meridian",
				Subsystem: "ledger",
				Name:      "committed_height",
				Help:      "Height of the most recently committed state root.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.height,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveOperation(op string, err error, seconds float64) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(seconds)
}

func (m *LedgerMetrics) SetCommittedHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}
