package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ontomarket/searchcache/resilience"
)

// scanBatch is the COUNT hint for SCAN-based namespace operations.
const scanBatch = 256

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// URL is a redis:// connection URL, credentials included.
	URL string

	// Namespace is the key prefix this store owns. Clear only touches keys
	// under this namespace, so unrelated data in a shared database
	// survives an invalidation.
	Namespace string

	// OpTimeout bounds every backend call. Default: resilience.DefaultTimeout.
	OpTimeout time.Duration

	// MaxFailures and ResetTimeout configure the circuit breaker guarding
	// the backend. Zero values take the resilience defaults.
	MaxFailures  int
	ResetTimeout time.Duration

	// OnStateChange, if set, observes breaker transitions.
	OnStateChange func(from, to resilience.State)
}

// RedisStore is a Store backed by a shared Redis instance. TTL enforcement
// is delegated to Redis itself; hit/miss counters are process-local. Every
// call runs under a bounded timeout and a circuit breaker so a dead backend
// degrades to instant misses instead of per-request stalls.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	timeout   *resilience.Timeout
	breaker   *resilience.Breaker
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewRedisStore creates a Redis-backed store. It does not dial eagerly;
// call Ping to verify the backend is reachable.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url: %w", err)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	return &RedisStore{
		client:    redis.NewClient(opts),
		namespace: cfg.Namespace,
		timeout:   resilience.NewTimeout(cfg.OpTimeout),
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			MaxFailures:  cfg.MaxFailures,
			ResetTimeout: cfg.ResetTimeout,
			// A missing key travels as redis.Nil; it must not trip the
			// circuit.
			IsFailure: func(err error) bool {
				return err != nil && !errors.Is(err, redis.Nil)
			},
			OnStateChange: cfg.OnStateChange,
		}),
	}, nil
}

// guard runs op under the circuit breaker and the per-call timeout.
func (s *RedisStore) guard(ctx context.Context, op func(context.Context) error) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.timeout.Execute(ctx, op)
	})
}

// Get retrieves a value. Redis expires entries itself, so any value that
// comes back is live.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.guard(ctx, func(ctx context.Context) error {
		b, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		value = b
		return nil
	})

	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		s.misses.Add(1)
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}

	s.hits.Add(1)
	return value, true, nil
}

// Set stores a value, passing the TTL through to Redis so expiry is
// enforced server-side and shared across processes.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.guard(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Clear deletes every key under the store's namespace using an incremental
// SCAN, and returns how many keys it removed. Redis offers no atomic
// namespace flush, so a concurrent writer may leave entries visible until
// their own TTL elapses; that stays within the documented eventual-
// consistency bound.
func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := s.guard(ctx, func(ctx context.Context) error {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, s.pattern(), scanBatch).Result()
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				n, err := s.client.Del(ctx, keys...).Result()
				if err != nil {
					return err
				}
				removed += n
			}
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})
	if err != nil {
		return removed, fmt.Errorf("cache: redis clear: %w", err)
	}
	return removed, nil
}

// Stats returns process-local hit/miss counters and a best-effort count of
// live keys under the namespace. A backend failure reports size zero rather
// than an error.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	var size int64
	_ = s.guard(ctx, func(ctx context.Context) error {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, s.pattern(), scanBatch).Result()
			if err != nil {
				size = 0
				return err
			}
			size += int64(len(keys))
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})

	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

// Ping verifies the backend is reachable. Used by startup wiring and
// health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	err := s.guard(ctx, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

// BreakerState reports the circuit breaker state for observability.
func (s *RedisStore) BreakerState() resilience.State {
	return s.breaker.State()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) pattern() string {
	return s.namespace + ":*"
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
