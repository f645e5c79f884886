// Package resilience provides fault-containment patterns for calls to
// remote cache backends.
//
// A remote backend involves network I/O and may stall or fail; the cache
// layer is required to fail open instead of propagating that to request
// handling. Two patterns cover this:
//
//   - Timeout: bounds every backend call so an unresponsive backend cannot
//     stall a request indefinitely.
//
//   - Breaker: a circuit breaker that stops issuing calls to a backend that
//     keeps failing, turning per-request timeouts into instant failures
//     until a probe succeeds.
//
// Both wrap an op func(ctx) error and can be composed:
//
//	guard := resilience.NewBreaker(resilience.BreakerConfig{MaxFailures: 5})
//	bound := resilience.NewTimeout(250 * time.Millisecond)
//
//	err := guard.Execute(ctx, func(ctx context.Context) error {
//	    return bound.Execute(ctx, pingBackend)
//	})
package resilience
