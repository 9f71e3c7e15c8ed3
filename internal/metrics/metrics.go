// Package metrics exposes Prometheus instrumentation for plan generation.
//
// Usage:
//
//	metrics.RecordRecommendation(rec.Fallback, rec.ConfidenceScore, elapsed)
//	metrics.RecordRejection()
//	metrics.RecordCacheLookup(metrics.CacheHit)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// RecommendationsTotal counts generated plans by whether the condition
	// matched the knowledge base.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fisioplan_recommendations_total",
			Help: "Total number of treatment recommendations generated",
		},
		[]string{"match"},
	)

	RecommendationConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fisioplan_recommendation_confidence",
			Help:    "Overall confidence score of generated recommendations",
			Buckets: prometheus.LinearBuckets(50, 5, 10),
		},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fisioplan_recommendation_duration_seconds",
			Help:    "Time spent generating a recommendation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	RejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fisioplan_profile_rejections_total",
			Help: "Total number of patient profiles rejected by validation",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fisioplan_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"},
	)
)

func RecordRecommendation(fallback bool, confidence int, elapsed time.Duration) {
	match := "known"
	if fallback {
		match = "fallback"
	}
	RecommendationsTotal.WithLabelValues(match).Inc()
	RecommendationConfidence.Observe(float64(confidence))
	RecommendationDuration.Observe(elapsed.Seconds())
}

func RecordRejection() {
	RejectionsTotal.Inc()
}

func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}
