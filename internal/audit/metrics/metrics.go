package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EntriesAppended *prometheus.CounterVec
	AppendFailures  prometheus.Counter
	SinkDropped     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "provena_audit_entries_appended_total",
			Help: "Total number of audit entries appended, by action code",
		}, []string{"action"}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provena_audit_append_failures_total",
			Help: "Total number of audit appends that failed at the store",
		}),
		SinkDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provena_audit_sink_dropped_total",
			Help: "Total number of entries not mirrored because the sink was full",
		}),
	}
}

func (m *Metrics) IncEntriesAppended(action string) {
	m.EntriesAppended.WithLabelValues(action).Inc()
}

func (m *Metrics) IncAppendFailures() {
	m.AppendFailures.Inc()
}

func (m *Metrics) IncSinkDropped() {
	m.SinkDropped.Inc()
}
