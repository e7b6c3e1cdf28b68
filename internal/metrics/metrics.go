// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recommendation outcomes.
const (
	OutcomeAI       = "ai"
	OutcomeCached   = "cached"
	OutcomeFallback = "fallback"
)

var (
	AssessmentsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icmm_assessments_submitted_total",
			Help: "Total number of scored assessments by maturity level",
		},
		[]string{"level"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icmm_persistence_failures_total",
			Help: "Total number of assessments that could not be stored",
		},
		[]string{"collection"},
	)

	RecommendationAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icmm_recommendation_attempts_total",
			Help: "Total number of recommendation calls to the model backend, retries included",
		},
	)

	RecommendationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icmm_recommendation_retries_total",
			Help: "Total number of recommendation retries scheduled after a transient failure",
		},
		[]string{"attempt"},
	)

	RecommendationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icmm_recommendation_results_total",
			Help: "Total number of recommendations served by source",
		},
		[]string{"source"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "icmm_recommendation_duration_seconds",
			Help:    "Time spent obtaining a recommendation, retries and fallback included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icmm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icmm_live_subscribers",
			Help: "Number of open live assessment subscriptions",
		},
	)
)

// ObserveRecommendation records how a recommendation was obtained and how long it took.
func ObserveRecommendation(source string, elapsed time.Duration) {
	RecommendationResults.WithLabelValues(source).Inc()
	RecommendationDuration.Observe(elapsed.Seconds())
}
