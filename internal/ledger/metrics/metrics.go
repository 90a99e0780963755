package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MovesTotal       *prometheus.CounterVec
	ItemsInitialized prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		MovesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provena_ledger_moves_total",
			Help: "Total number of fragment moves, by outcome",
		}, []string{"outcome"}),
		ItemsInitialized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provena_ledger_items_initialized_total",
			Help: "Total number of items whose fragment records were initialized",
		}),
	}
}

func (m *Metrics) IncMove(outcome string) {
	m.MovesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncItemInitialized() {
	m.ItemsInitialized.Inc()
}
