package cache

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ontomarket/searchcache/observe"
)

// Environment keys, resolved once at process start.
const (
	EnvEnabled         = "CACHE_ENABLED"
	EnvTTLSeconds      = "CACHE_TTL_SECONDS"
	EnvMaxSize         = "CACHE_MAX_SIZE"
	EnvUseRedis        = "USE_REDIS_CACHE"
	EnvRedisURL        = "REDIS_URL"
	EnvNamespace       = "CACHE_NAMESPACE"
	EnvRemoteTimeoutMs = "CACHE_REMOTE_TIMEOUT_MS"
)

// DefaultRedisURL points at a local Redis, database 0.
const DefaultRedisURL = "redis://localhost:6379/0"

// Config is the cache configuration, resolved once at startup and injected
// into construction. No component re-reads configuration mid-flight;
// restarting the process is the only way to change it.
type Config struct {
	// Enabled gates the cache globally. When false the Manager always
	// bypasses the store.
	Enabled bool

	// TTL is the lifetime of each entry from insertion.
	TTL time.Duration

	// MaxSize is the capacity bound for the in-memory backend.
	MaxSize int

	// UseRedis selects the Redis backend instead of the in-memory one.
	UseRedis bool

	// RedisURL is the connection target for the Redis backend. ${VAR}
	// references are expanded from the environment at load time.
	RedisURL string

	// Namespace prefixes every key, so one shared Redis database can hold
	// several caches.
	Namespace string

	// RemoteTimeout bounds every Redis call.
	RemoteTimeout time.Duration
}

// DefaultConfig returns the defaults: enabled, 5 minute TTL, 128 entries,
// in-memory backend.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		TTL:           DefaultTTL,
		MaxSize:       DefaultMaxSize,
		UseRedis:      false,
		RedisURL:      DefaultRedisURL,
		Namespace:     DefaultNamespace,
		RemoteTimeout: 0, // resilience default
	}
}

// LoadConfig resolves configuration from the environment on top of
// DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.Enabled, err = envBool(EnvEnabled, cfg.Enabled); err != nil {
		return Config{}, err
	}
	if cfg.UseRedis, err = envBool(EnvUseRedis, cfg.UseRedis); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(EnvTTLSeconds); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("cache: invalid %s: %w", EnvTTLSeconds, err)
		}
		cfg.TTL = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(EnvMaxSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("cache: invalid %s: %w", EnvMaxSize, err)
		}
		cfg.MaxSize = size
	}
	if v := os.Getenv(EnvRemoteTimeoutMs); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("cache: invalid %s: %w", EnvRemoteTimeoutMs, err)
		}
		cfg.RemoteTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.RedisURL = v
	}

	// The URL may reference other environment variables, typically for a
	// password held in a secret store.
	expanded, err := expandEnvStrict(cfg.RedisURL)
	if err != nil {
		return Config{}, fmt.Errorf("cache: invalid %s: %w", EnvRedisURL, err)
	}
	cfg.RedisURL = expanded

	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache: TTL must be positive, got %s", c.TTL)
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("cache: max size must be positive, got %d", c.MaxSize)
	}
	if c.UseRedis && c.RedisURL == "" {
		return fmt.Errorf("cache: redis backend selected but no URL configured")
	}
	return nil
}

// New wires a Manager from configuration, once at process start. When the
// Redis backend is selected but unreachable, the process still starts:
// the error is logged and the cache degrades to the in-memory backend
// rather than refusing to serve traffic.
func New(ctx context.Context, cfg Config, obs observe.Observer) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observe.NewNoopLogger()
	if obs != nil {
		logger = obs.Logger()
	}

	keyer := NewKeyer(cfg.Namespace)

	var store Store
	backend := "memory"
	if cfg.UseRedis {
		rs, err := NewRedisStore(RedisConfig{
			URL:       cfg.RedisURL,
			Namespace: keyer.Namespace(),
			OpTimeout: cfg.RemoteTimeout,
		})
		if err == nil {
			err = rs.Ping(ctx)
		}
		if err != nil {
			logger.Error(ctx, "redis cache unavailable, falling back to in-memory store",
				observe.F("error", err.Error()))
			store = NewMemoryStore(cfg.MaxSize)
		} else {
			store = rs
			backend = "redis"
		}
	} else {
		store = NewMemoryStore(cfg.MaxSize)
	}

	m, err := NewManager(store, keyer, ManagerConfig{
		TTL:       cfg.TTL,
		Disabled:  !cfg.Enabled,
		Backend:   backend,
		Namespace: keyer.Namespace(),
	}, obs)
	if err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "cache store initialized",
		observe.F("backend", backend),
		observe.F("enabled", cfg.Enabled),
		observe.F("ttl", cfg.TTL.String()),
		observe.F("max_size", cfg.MaxSize))

	return m, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("cache: invalid %s: %w", key, err)
	}
	return parsed, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict expands ${VAR} references in s, erroring on any variable
// missing from the environment. $$ emits a literal $.
func expandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00SEARCHCACHE_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := os.LookupEnv(key); !ok {
			missing[key] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
	}

	s = envVarPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(ref)[1])
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
