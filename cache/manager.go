package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ontomarket/searchcache/observe"
)

// DefaultTTL is the entry lifetime applied when none is configured.
const DefaultTTL = 5 * time.Minute

// ComputeFunc produces the result for a cache miss. The cache never
// inspects the payload; it only remembers the result of the last
// successful computation.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ManagerConfig configures a Manager. The zero value means: caching
// enabled, DefaultTTL, no coalescing.
type ManagerConfig struct {
	// TTL is the lifetime of each entry from insertion. Default: DefaultTTL.
	TTL time.Duration

	// Disabled bypasses the store entirely; every ReadThrough computes
	// directly and no metrics are recorded.
	Disabled bool

	// Coalesce enables single-flight coalescing of concurrent misses for
	// the same key, so only one computation runs. Off by default;
	// concurrent identical misses then compute independently.
	Coalesce bool

	// Backend and Namespace identify the cache instance in telemetry.
	Backend   string
	Namespace string
}

// Manager orchestrates the read-through pattern over a Store and exposes
// the invalidation entry point used by mutating operations. Construct one
// per process at startup and inject it into every consumer; it is safe for
// concurrent use.
type Manager struct {
	store    Store
	keyer    Keyer
	ttl      time.Duration
	disabled bool
	coalesce bool
	group    singleflight.Group

	meta    observe.CacheMeta
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
}

// NewManager creates a Manager. obs may be nil, in which case telemetry is
// a no-op.
func NewManager(store Store, keyer Keyer, cfg ManagerConfig, obs observe.Observer) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if keyer == nil {
		return nil, ErrNilKeyer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}

	m := &Manager{
		store:    store,
		keyer:    keyer,
		ttl:      cfg.TTL,
		disabled: cfg.Disabled,
		coalesce: cfg.Coalesce,
		meta:     observe.CacheMeta{Backend: cfg.Backend, Namespace: cfg.Namespace},
		logger:   observe.NewNoopLogger(),
		metrics:  observe.NewNoopMetrics(),
		tracer:   observe.NewNoopTracer(),
	}

	if obs != nil {
		m.logger = obs.Logger().WithCache(m.meta)
		m.tracer = observe.NewTracer(obs.Tracer())
		metrics, err := observe.NewMetrics(obs.Meter())
		if err != nil {
			return nil, err
		}
		m.metrics = metrics
	}

	return m, nil
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Enabled reports whether the manager consults the store at all.
func (m *Manager) Enabled() bool {
	return !m.disabled
}

// ReadThrough returns the cached result for params, computing and storing
// it on a miss. Cache-layer failures never surface: a key derivation
// failure bypasses the cache for this call, and a store failure is treated
// as a miss. Only a failure of compute itself is returned, and failed
// computations are never cached.
func (m *Manager) ReadThrough(ctx context.Context, params Params, compute ComputeFunc) ([]byte, error) {
	if m.disabled {
		return compute(ctx)
	}

	key, err := m.keyer.Key(params)
	if err != nil {
		m.logger.Warn(ctx, "cache key derivation failed, bypassing cache",
			observe.F("error", err.Error()))
		return compute(ctx)
	}

	ctx, span := m.tracer.StartSpan(ctx, m.meta, "read_through")
	var value []byte
	if m.coalesce {
		var v any
		v, err, _ = m.group.Do(key, func() (any, error) {
			return m.lookup(ctx, key, compute)
		})
		if v != nil {
			value = v.([]byte)
		}
	} else {
		value, err = m.lookup(ctx, key, compute)
	}
	m.tracer.EndSpan(span, err)
	return value, err
}

func (m *Manager) lookup(ctx context.Context, key string, compute ComputeFunc) ([]byte, error) {
	value, ok, err := m.store.Get(ctx, key)
	if err != nil {
		// Fail open: a broken backend reads as a miss.
		m.logger.Error(ctx, "cache read failed",
			observe.F("key", key),
			observe.F("error", err.Error()))
		m.metrics.RecordBackendError(ctx, m.meta, "get")
	}
	if ok {
		m.metrics.RecordLookup(ctx, m.meta, true)
		m.logger.Debug(ctx, "cache hit", observe.F("key", key))
		return value, nil
	}

	m.metrics.RecordLookup(ctx, m.meta, false)
	m.logger.Debug(ctx, "cache miss", observe.F("key", key))

	start := time.Now()
	result, err := compute(ctx)
	m.metrics.RecordCompute(ctx, m.meta, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, result, m.ttl); err != nil {
		// Best-effort: the result is still returned uncached.
		m.logger.Error(ctx, "cache write failed",
			observe.F("key", key),
			observe.F("error", err.Error()))
		m.metrics.RecordBackendError(ctx, m.meta, "set")
	}
	return result, nil
}

// InvalidateAll clears the entire store and returns how many entries were
// removed. Mutating operations call it synchronously after a successful
// mutation. A clear failure is logged but never propagated to the
// triggering mutation; staleness stays bounded by the TTL.
func (m *Manager) InvalidateAll(ctx context.Context) int64 {
	if m.disabled {
		return 0
	}

	ctx, span := m.tracer.StartSpan(ctx, m.meta, "invalidate_all")
	removed, err := m.store.Clear(ctx)
	m.tracer.EndSpan(span, err)

	if err != nil {
		m.logger.Error(ctx, "cache invalidation incomplete",
			observe.F("removed", removed),
			observe.F("error", err.Error()))
		m.metrics.RecordBackendError(ctx, m.meta, "clear")
	} else {
		m.logger.Info(ctx, "cache invalidated", observe.F("removed", removed))
	}
	m.metrics.RecordInvalidation(ctx, m.meta, removed)
	return removed
}

// Stats exposes store counters to the observability collaborator.
func (m *Manager) Stats(ctx context.Context) Stats {
	return m.store.Stats(ctx)
}
