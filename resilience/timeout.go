package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout is applied when a Timeout is constructed with a
// non-positive duration.
const DefaultTimeout = 250 * time.Millisecond

// Timeout bounds the duration of backend calls.
//
// The wrapped op must honor context cancellation; the deadline is enforced
// through the derived context rather than by abandoning the call, so no
// goroutine is leaked when a backend stalls.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout wrapper with the given limit.
func NewTimeout(limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = DefaultTimeout
	}
	return &Timeout{limit: limit}
}

// Limit returns the configured deadline.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}

// Execute runs op under the configured deadline. A deadline overrun is
// reported as ErrTimeout; other errors pass through unchanged.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	err := op(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
