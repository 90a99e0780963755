package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal  *prometheus.CounterVec
	DenialsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provena_policy_checks_total",
			Help: "Total number of receive-eligibility checks, by decision",
		}, []string{"decision"}),
		DenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provena_policy_denials_total",
			Help: "Total number of receive-eligibility denials, by failing predicate",
		}, []string{"predicate"}),
	}
}

func (m *Metrics) IncCheck(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.ChecksTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncDenial(predicate string) {
	m.DenialsTotal.WithLabelValues(predicate).Inc()
}
