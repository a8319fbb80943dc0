package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call without executing it
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a CircuitBreaker
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// Operation is a unit of work guarded by a breaker or retried by Retry
type Operation func(ctx context.Context) (interface{}, error)

// CircuitBreaker wraps gobreaker with a fallback and Prometheus instrumentation
type CircuitBreaker struct {
	name     string
	breaker  *gobreaker.CircuitBreaker
	fallback FallbackFunc
}

// NewCircuitBreaker builds a breaker that trips after FailureThreshold consecutive failures
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	settings = settings.withDefaults()
	name := settings.Name
	if fallback == nil {
		fallback = NoopFallback
	}

	cb := &CircuitBreaker{name: name, fallback: fallback}
	cb.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			recordTransition(name, to)
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about the dependency's health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	recordState(name, gobreaker.StateClosed)
	return cb
}

// State reports the current breaker state
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Execute runs op through the breaker. When the breaker is open the fallback decides the result.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	if err == nil {
		recordCall(cb.name, resultOK)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordCall(cb.name, resultDegraded)
		return cb.fallback(ctx, err)
	}

	recordCall(cb.name, resultError)
	return nil, err
}
