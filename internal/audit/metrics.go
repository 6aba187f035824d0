package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded on the skipped counter.
const (
	reasonClosed    = "publisher_closed"
	reasonCancelled = "context_cancelled"
)

// Metrics holds Prometheus metrics for the audit trail.
type Metrics struct {
	Written      *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	WriteLatency prometheus.Histogram
	QueueDepth   prometheus.Gauge
}

// NewMetrics registers audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Written: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_audit_events_written_total",
			Help: "Audit events written to every configured sink",
		}, []string{"event_type"}),
		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_audit_events_skipped_total",
			Help: "Audit events that could not be enqueued or written",
		}, []string{"event_type", "reason"}),
		WriteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctions_audit_write_duration_seconds",
			Help:    "Time to write one audit event to all sinks",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanctions_audit_queue_depth",
			Help: "Audit events waiting for the writer",
		}),
	}
}

func (m *Metrics) incWritten(t EventType) {
	if m == nil {
		return
	}
	m.Written.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) incSkipped(t EventType, reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(string(t), reason).Inc()
}

func (m *Metrics) observeWrite(seconds float64) {
	if m == nil {
		return
	}
	m.WriteLatency.Observe(seconds)
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
