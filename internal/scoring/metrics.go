package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classifierFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patrol_classifier_fallbacks_total",
		Help: "Scores computed without the external classifier because it failed or timed out",
	})

	scoresByTier = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patrol_scores_total",
		Help: "Scores produced by the engine, by risk tier",
	}, []string{"tier"})
)
