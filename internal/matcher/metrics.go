package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for matcher calls.
type Metrics struct {
	QueryLatency   *prometheus.HistogramVec
	QueryFailures  *prometheus.CounterVec
	Retries        *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	SkippedResults *prometheus.CounterVec
	BreakerState   prometheus.Gauge
}

// NewMetrics registers matcher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sanctions_matcher_query_duration_seconds",
			Help:    "Latency of one dataset query, retries included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"dataset", "outcome"}),
		QueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_matcher_query_failures_total",
			Help: "Dataset queries that failed, by error category",
		}, []string{"dataset", "category"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_matcher_retries_total",
			Help: "Retried matcher calls",
		}, []string{"dataset"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_matcher_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		SkippedResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_matcher_malformed_candidates_total",
			Help: "Result items dropped because they failed validation",
		}, []string{"dataset"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanctions_matcher_circuit_breaker_state",
			Help: "Matcher circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) observeQuery(dataset, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.QueryLatency.WithLabelValues(dataset, outcome).Observe(seconds)
}

func (m *Metrics) incFailure(dataset string, category ErrorCategory) {
	if m == nil {
		return
	}
	m.QueryFailures.WithLabelValues(dataset, string(category)).Inc()
}

func (m *Metrics) incRetry(dataset string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(dataset).Inc()
}

func (m *Metrics) incCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) addSkipped(dataset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SkippedResults.WithLabelValues(dataset).Add(float64(n))
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
