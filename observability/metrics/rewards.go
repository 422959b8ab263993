package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RewardsMetrics struct {
	operations     *prometheus.CounterVec
	rewardsPaid    *prometheus.CounterVec
	roundingDust   *prometheus.GaugeVec
	totalPrincipal *prometheus.GaugeVec
}

var (
	rewardsOnce     sync.Once
	rewardsRegistry *RewardsMetrics
)

func Rewards() *RewardsMetrics {
	rewardsOnce.Do(func() {
		rewardsRegistry = &RewardsMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "rewards",
				Name:      "operations_total",
				Help:      "Count of completed reward pool operations by pool and kind.",
			}, []string{"pool", "op"}),
			rewardsPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "rewards",
				Name:      "paid_total",
				Help:      "Cumulative reward units paid out per pool.",
			}, []string{"pool"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "meridian",
				Subsystem: "rewards",
				Name:      "rounding_dust",
				Help:      "Cumulative accumulator rounding remainder per pool in scaled units.",
			}, []string{"pool"}),
			totalPrincipal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "meridian",
				Subsystem: "rewards",
				Name:      "total_principal",
				Help:      "Current staked principal per pool in base units.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			rewardsRegistry.operations,
			rewardsRegistry.rewardsPaid,
			rewardsRegistry.roundingDust,
			rewardsRegistry.totalPrincipal,
		)
	})
	return rewardsRegistry
}

func normalizePool(pool string) string {
	pool = strings.ToLower(strings.TrimSpace(pool))
	if pool == "" {
		return "unknown"
	}
	return pool
}

func (m *RewardsMetrics) ObserveOperation(pool, op string) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(normalizePool(pool), op).Inc()
}

func (m *RewardsMetrics) AddRewardPaid(pool string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.rewardsPaid.WithLabelValues(normalizePool(pool)).Add(amount)
}

func (m *RewardsMetrics) AddRoundingDust(pool string, dust float64) {
	if m == nil || dust <= 0 {
		return
	}
	m.roundingDust.WithLabelValues(normalizePool(pool)).Add(dust)
}

func (m *RewardsMetrics) SetTotalPrincipal(pool string, amount float64) {
	if m == nil {
		return
	}
	m.totalPrincipal.WithLabelValues(normalizePool(pool)).Set(amount)
}
