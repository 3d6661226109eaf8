package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors the monitor feeds.
type Metrics struct {
	turns        *prometheus.CounterVec
	turnCost     *prometheus.HistogramVec
	turnLatency  *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	breakerOpens *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	spendHourly  prometheus.Gauge
	spendDaily   prometheus.Gauge
}

// NewMetrics registers the monitor's collectors with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry to
// avoid duplicate registration.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "turns_total",
				Help:      "Total backend attempts by backend and result",
			},
			[]string{"backend", "result"},
		),

		turnCost: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "turn_cost_dollars",
				Help:      "Dollar cost per backend attempt",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // $0.0001 to ~$0.20
			},
			[]string{"backend"},
		),

		turnLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "turn_latency_seconds",
				Help:      "Latency per backend attempt in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"backend"},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),

		breakerOpens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "breaker_opens_total",
				Help:      "Circuit breaker open transitions by backend",
			},
			[]string{"backend"},
		),

		alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "alerts_total",
				Help:      "Alerts raised by kind",
			},
			[]string{"kind"},
		),

		spendHourly: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "spend_current_hour_dollars",
				Help:      "Dollar spend accumulated in the current hour",
			},
		),

		spendDaily: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "spend_current_day_dollars",
				Help:      "Dollar spend accumulated in the current day",
			},
		),
	}
}

// recordTurn records one resolved backend attempt.
func (m *Metrics) recordTurn(backend string, latencySeconds, cost float64, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.turns.WithLabelValues(backend, result).Inc()
	m.turnLatency.WithLabelValues(backend).Observe(latencySeconds)
	if cost > 0 {
		m.turnCost.WithLabelValues(backend).Observe(cost)
	}
}

// recordCache records one cache lookup result.
func (m *Metrics) recordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// recordBreakerOpen records a breaker open transition.
func (m *Metrics) recordBreakerOpen(backend string) {
	m.breakerOpens.WithLabelValues(backend).Inc()
}

// recordAlert records a raised alert.
func (m *Metrics) recordAlert(kind string) {
	m.alerts.WithLabelValues(kind).Inc()
}
