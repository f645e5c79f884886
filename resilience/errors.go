package resilience

import "errors"

// Sentinel errors for guarded backend calls.
var (
	// ErrBreakerOpen is returned when the circuit breaker is open and the
	// call was not attempted.
	ErrBreakerOpen = errors.New("resilience: breaker is open")

	// ErrTimeout is returned when a backend call exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
