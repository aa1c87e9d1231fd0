package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for ModelCalls.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeEmpty     = "empty"
	OutcomeMalformed = "malformed"
)

var (
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_model_calls_total",
			Help: "Total number of generative model calls by pipeline operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_matcher_model_call_duration_seconds",
			Help:    "Duration of generative model calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"model"},
	)

	MatchFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_match_fallbacks_total",
			Help: "Total number of listings scored by the deterministic fallback",
		},
		[]string{"reason"},
	)

	MatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_matcher_match_errors_total",
			Help: "Total number of listings that failed matching and were reported as errors",
		},
	)

	RecommendationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_recommendations_dropped_total",
			Help: "Total number of recommendation records rejected during validation",
		},
		[]string{"reason"},
	)

	ListingsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_listings_fetched_total",
			Help: "Total number of listing records fetched from the store, by result",
		},
		[]string{"result"},
	)
)
