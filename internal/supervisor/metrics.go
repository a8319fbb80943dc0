package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	serviceStatusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "patrol_service_status",
		Help: "Collection service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=error)",
	}, []string{"service"})

	serviceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patrol_service_transitions_total",
		Help: "Collection service status transitions",
	}, []string{"service", "to"})

	stopTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patrol_service_stop_timeouts_total",
		Help: "Stops forced because the collector did not acknowledge in time",
	}, []string{"service"})
)

func statusValue(s Status) float64 {
	switch s {
	case StatusStarting:
		return 1
	case StatusRunning:
		return 2
	case StatusStopping:
		return 3
	case StatusError:
		return 4
	default:
		return 0
	}
}
