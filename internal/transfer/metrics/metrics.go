package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransitionsTotal  *prometheus.CounterVec
	SettlementRetries prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provena_transfer_transitions_total",
			Help: "Total number of transfer state transitions, by resulting status",
		}, []string{"status"}),
		SettlementRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provena_transfer_settlement_failures_total",
			Help: "Total number of completions that failed at the ledger and stayed retryable",
		}),
	}
}

func (m *Metrics) IncTransition(status string) {
	m.TransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncSettlementFailure() {
	m.SettlementRetries.Inc()
}
