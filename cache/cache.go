package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for cache construction.
var (
	// ErrNilStore indicates a Manager was constructed without a store.
	ErrNilStore = errors.New("cache: store is nil")

	// ErrNilKeyer indicates a Manager was constructed without a keyer.
	ErrNilKeyer = errors.New("cache: keyer is nil")
)

// Stats is a point-in-time snapshot of store activity for observability.
// Size is an upper bound: a lazily-expired entry still counts until the
// next lookup touches it.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// Store is the contract shared by the in-memory and Redis backends. The
// backend is selected once at startup; callers depend only on this
// interface.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get returns (nil, false, nil) for a missing or expired key; absence
//     is a normal, silent result, never an error. A non-nil error means the
//     backend itself failed and the caller should treat the lookup as a
//     miss (fail-open).
//   - Set overwrites any existing entry and must not fail just because it
//     had to evict to make room.
//   - Clear removes every entry and reports how many it removed; for a
//     networked backend this may be best-effort.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) (removed int64, err error)
	Stats(ctx context.Context) Stats
}
