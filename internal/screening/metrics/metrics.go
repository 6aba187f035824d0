package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
type Metrics struct {
	// Decision outcomes by decision and risk level
	Decisions *prometheus.CounterVec

	// Screenings that ended without a decision, by reason
	Failures *prometheus.CounterVec

	// Screenings decided with at least one dataset missing
	PartialScreenings prometheus.Counter

	// Top score distribution across decided screenings
	TopScore prometheus.Histogram

	// Overall screening latency including every dataset query
	ScreenLatency prometheus.Histogram
}

// New registers the screening metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_screening_decisions_total",
			Help: "Screening decisions by decision and risk level",
		}, []string{"decision", "risk_level"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_screening_failures_total",
			Help: "Screenings that returned no decision, by reason",
		}, []string{"reason"}),

		PartialScreenings: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctions_screening_partial_total",
			Help: "Screenings decided while at least one dataset query failed",
		}),

		TopScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctions_screening_top_score",
			Help:    "Highest candidate score per decided screening",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		}),

		ScreenLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctions_screening_duration_seconds",
			Help:    "Duration of a full screening including matcher queries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
	}
}

// ObserveDecision records a decided screening.
func (m *Metrics) ObserveDecision(decision, riskLevel string, topScore float64, partial bool) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, riskLevel).Inc()
	m.TopScore.Observe(topScore)
	if partial {
		m.PartialScreenings.Inc()
	}
}

// IncrementFailure records a screening that ended without a decision.
func (m *Metrics) IncrementFailure(reason string) {
	if m != nil {
		m.Failures.WithLabelValues(reason).Inc()
	}
}

// ObserveScreenLatency records the total screening duration.
func (m *Metrics) ObserveScreenLatency(d time.Duration) {
	if m != nil {
		m.ScreenLatency.Observe(d.Seconds())
	}
}
