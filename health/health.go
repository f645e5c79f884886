package health

import (
	"context"
	"time"
)

// Status is the health of a component.
type Status int

const (
	// StatusHealthy means the component is fully functional.
	StatusHealthy Status = iota
	// StatusDegraded means the component works but with reduced capacity or
	// a fallback engaged.
	StatusDegraded
	// StatusUnhealthy means the component is not functioning.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one health probe.
type Result struct {
	// Status is the probe outcome.
	Status Status

	// Message is a short human-readable summary.
	Message string

	// Details carries probe-specific metadata, e.g. cache counters.
	Details map[string]any

	// CheckedAt is when the probe ran.
	CheckedAt time.Time

	// Err is the underlying failure for unhealthy results.
	Err error
}

// Healthy builds a healthy Result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, CheckedAt: time.Now()}
}

// Degraded builds a degraded Result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, CheckedAt: time.Now()}
}

// Unhealthy builds an unhealthy Result wrapping err.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err, CheckedAt: time.Now()}
}

// WithDetails returns a copy of r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes a single component.
type Checker interface {
	// Name identifies the component in health output.
	Name() string

	// Check runs the probe. It must respect ctx cancellation and never
	// panic; failures are reported through the Result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc wraps fn as a named Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name identifies the component in health output.
func (f *CheckerFunc) Name() string { return f.name }

// Check runs the wrapped probe.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Ensure CheckerFunc implements Checker
var _ Checker = (*CheckerFunc)(nil)
