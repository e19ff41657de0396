package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsIngested    prometheus.Counter
	EventsRejected    prometheus.Counter
	BroadcastFailures prometheus.Counter
	RetentionDeleted  prometheus.Counter
	ActiveStreams     prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_ingested_total",
			Help: "Total number of audit events accepted and persisted",
		}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_events_rejected_total",
			Help: "Total number of audit events rejected by schema validation",
		}),
		BroadcastFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_broadcast_failures_total",
			Help: "Total number of post-persist publish failures",
		}),
		RetentionDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audit_retention_deleted_total",
			Help: "Total number of events removed by the retention sweeper",
		}),
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "audit_active_streams",
			Help: "Number of currently connected stream subscribers",
		}),
	}
}

// The increment helpers tolerate a nil receiver so tests can wire services
// without touching the default Prometheus registry.

func (m *Metrics) IncEventsIngested() {
	if m == nil {
		return
	}
	m.EventsIngested.Inc()
}

func (m *Metrics) IncEventsRejected() {
	if m == nil {
		return
	}
	m.EventsRejected.Inc()
}

func (m *Metrics) IncBroadcastFailures() {
	if m == nil {
		return
	}
	m.BroadcastFailures.Inc()
}

func (m *Metrics) AddRetentionDeleted(n float64) {
	if m == nil {
		return
	}
	m.RetentionDeleted.Add(n)
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}
