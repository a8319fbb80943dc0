package evidence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	integrityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrol_integrity_checks_total",
			Help: "Evidence integrity checks, by result",
		},
		[]string{"result"},
	)

	evidenceCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patrol_evidence_created_total",
			Help: "Evidence records created, by type",
		},
		[]string{"type"},
	)
)
