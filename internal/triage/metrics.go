package triage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item outcomes
const (
	outcomeKept      = "kept"
	outcomeDiscarded = "discarded"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

var (
	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrol_items_total",
			Help: "Items triaged, by outcome",
		},
		[]string{"outcome"},
	)

	alertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrol_alerts_created_total",
			Help: "Alerts created, by risk tier",
		},
		[]string{"tier"},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patrol_batch_duration_seconds",
			Help:    "Time to triage one batch",
			Buckets: prometheus.DefBuckets,
		},
	)
)
