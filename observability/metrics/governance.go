package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type GovernanceMetrics struct {
	proposals  prometheus.Counter
	votes      *prometheus.CounterVec
	executions prometheus.Counter
}

var (
	governanceOnce     sync.Once
	governanceRegistry *GovernanceMetrics
)

func Governance() *GovernanceMetrics {
	governanceOnce.Do(func() {
		governanceRegistry = &GovernanceMetrics{
			proposals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "gov",
				Name:      "proposals_total",
				Help:      "Count of proposals submitted.",
			}),
			votes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "gov",
				Name:      "votes_total",
				Help:      "Count of votes cast by direction.",
			}, []string{"support"}),
			executions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "meridian",
				Subsystem: "gov",
				Name:      "executions_total",
				Help:      "Count of proposals whose payload was applied.",
			}),
		}
		prometheus.MustRegister(
			governanceRegistry.proposals,
			governanceRegistry.votes,
			governanceRegistry.executions,
		)
	})
	return governanceRegistry
}

func (m *GovernanceMetrics) ObserveProposal() {
	if m == nil {
		return
	}
	m.proposals.Inc()
}

func (m *GovernanceMetrics) ObserveVote(support bool) {
	if m == nil {
		return
	}
	label := "against"
	if support {
		label = "for"
	}
	m.votes.WithLabelValues(label).Inc()
}

func (m *GovernanceMetrics) ObserveExecution() {
	if m == nil {
		return
	}
	m.executions.Inc()
}
