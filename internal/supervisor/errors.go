package supervisor

import "errors"

var (
	ErrAlreadyRunning    = errors.New("service already running")
	ErrNotRunning        = errors.New("service not running")
	ErrStopTimeout       = errors.New("collector did not acknowledge stop in time")
	ErrUnknownService    = errors.New("unknown service")
	ErrInvalidTransition = errors.New("invalid status transition")
)
