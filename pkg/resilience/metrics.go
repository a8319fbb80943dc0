package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	dependencyState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "patrol_dependency_breaker_open",
		Help: "Breaker state per dependency: 0 closed, 0.5 probing, 1 open (degraded)",
	}, []string{"dependency"})

	dependencyCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patrol_dependency_calls_total",
		Help: "Calls to the classifier and collector control plane, by result",
	}, []string{"dependency", "result"})

	dependencyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patrol_dependency_breaker_transitions_total",
		Help: "Breaker state changes per dependency",
	}, []string{"dependency", "to"})
)

// call results
const (
	resultOK       = "ok"
	resultError    = "error"
	resultDegraded = "degraded"
)

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return 0
	}
}

func recordState(name string, state gobreaker.State) {
	dependencyState.WithLabelValues(name).Set(stateValue(state))
}

func recordTransition(name string, to gobreaker.State) {
	dependencyTransitions.WithLabelValues(name, to.String()).Inc()
	recordState(name, to)
}

func recordCall(name, result string) {
	dependencyCalls.WithLabelValues(name, result).Inc()
}
