// Package metrics exposes retrieval events as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "fetchkit"

type Metrics struct {
	CacheEventsTotal      *prometheus.CounterVec
	StrategyAttemptsTotal *prometheus.CounterVec
	FetchDurationSeconds  *prometheus.HistogramVec
	ErrorsTotal           *prometheus.CounterVec

	RateLimitWaitSeconds prometheus.Histogram

	BatchInFlight      prometheus.Gauge
	BatchRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers every metric on reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "cache",
				Name:      "events_total",
				Help:      "Cache lookups and writes by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		StrategyAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "fetch",
				Name:      "strategy_attempts_total",
				Help:      "Retrieval attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Duration of successful retrievals in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"strategy"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Recorded errors by package and canonical cause",
			},
			[]string{"package", "cause"},
		),
		RateLimitWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "ratelimit",
				Name:      "wait_seconds",
				Help:      "Time spent waiting for the rate limiter",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
		),
		BatchInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "batch",
				Name:      "in_flight",
				Help:      "Batch requests currently being fetched",
			},
		),
		BatchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "batch",
				Name:      "requests_total",
				Help:      "Finished batch requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) ObserveLimiterWait(d time.Duration) {
	m.RateLimitWaitSeconds.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
