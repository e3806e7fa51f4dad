package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	submissionsCreated     *prometheus.CounterVec
	evaluationsRecorded    *prometheus.CounterVec
	evaluationsDegraded    *prometheus.CounterVec
	reviewsRecorded        *prometheus.CounterVec
	narrationCache         *prometheus.CounterVec
	narrationRegenFailures prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors for the submission
// pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_submissions_created_total",
			Help: "Total number of submissions entering the pipeline.",
		}, []string{"modality"})

		evaluationsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_evaluations_recorded_total",
			Help: "Total number of automated evaluations committed.",
		}, []string{"modality"})

		evaluationsDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_evaluations_degraded_total",
			Help: "Evaluations recorded with a degraded placeholder after retry.",
		}, []string{"modality"})

		reviewsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_reviews_recorded_total",
			Help: "Teacher reviews committed, by kind.",
		}, []string{"kind"})

		narrationCache = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_narration_cache_total",
			Help: "Derived artifact cache lookups, by kind and result.",
		}, []string{"kind", "result"})

		narrationRegenFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduai_narration_regen_failures_total",
			Help: "Background narration regenerations that failed.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduai_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eduai_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			submissionsCreated,
			evaluationsRecorded,
			evaluationsDegraded,
			reviewsRecorded,
			narrationCache,
			narrationRegenFailures,
			httpRequestsTotal,
			httpLatencySeconds,
		)
	})
}

// SubmissionsCreated exposes the created-submissions counter.
func SubmissionsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsCreated
}

// EvaluationsRecorded exposes the committed-evaluations counter.
func EvaluationsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsRecorded
}

// EvaluationsDegraded exposes the degraded-evaluation counter.
func EvaluationsDegraded() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsDegraded
}

// ReviewsRecorded exposes the reviews counter.
func ReviewsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsRecorded
}

// NarrationCache exposes the artifact cache counter.
func NarrationCache() *prometheus.CounterVec {
	RegisterMetrics()
	return narrationCache
}

// NarrationRegenFailures exposes the background regeneration failure counter.
func NarrationRegenFailures() prometheus.Counter {
	RegisterMetrics()
	return narrationRegenFailures
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
