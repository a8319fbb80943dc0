package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the result of a call the breaker refused to run
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// DegradedError reports that a dependency is skipped while its breaker is open.
// It matches ErrCircuitOpen under errors.Is.
type DegradedError struct {
	Dependency string
	Cause      error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s degraded: %v", e.Dependency, e.Cause)
}

func (e *DegradedError) Unwrap() []error {
	return []error{ErrCircuitOpen, e.Cause}
}

// IsDegraded reports whether err came from an open breaker and names the dependency
func IsDegraded(err error) (string, bool) {
	var d *DegradedError
	if errors.As(err, &d) {
		return d.Dependency, true
	}
	return "", false
}

// NoopFallback returns ErrCircuitOpen
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// Degraded logs the refusal and returns a DegradedError naming dependency
func Degraded(dependency string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("Dependency degraded, breaker open",
			zap.String("dependency", dependency),
			zap.Error(err),
		)
		return nil, &DegradedError{Dependency: dependency, Cause: err}
	}
}
