package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HeatGamesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playradar_heat_games_updated_total",
		Help: "The total number of games whose heat scores were recomputed",
	})

	HeatGamesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playradar_heat_games_skipped_total",
		Help: "The total number of games skipped during heat recompute due to errors",
	})

	HeatRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playradar_heat_recompute_duration_seconds",
		Help:    "Duration of a full catalog heat recompute",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	RecommendationsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playradar_recommendations_generated_total",
		Help: "The total number of per-user recommendation generation passes",
	}, []string{"status"})

	RecommendationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playradar_recommendation_cache_hits_total",
		Help: "The total number of recommendation reads served from cache",
	})

	RecommendationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playradar_recommendation_cache_misses_total",
		Help: "The total number of recommendation reads that missed the cache",
	})

	InterestRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playradar_interest_rebuilds_total",
		Help: "The total number of user interest vector rebuilds",
	})

	InterestVectorSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playradar_interest_vector_size",
		Help:    "Number of tags in rebuilt interest vectors",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)
