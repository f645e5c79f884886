package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", cfg.TTL, DefaultTTL)
	}
	if cfg.MaxSize != DefaultMaxSize {
		t.Errorf("MaxSize = %d, want %d", cfg.MaxSize, DefaultMaxSize)
	}
	if cfg.UseRedis {
		t.Error("default config should use the in-memory backend")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv(EnvEnabled, "false")
	t.Setenv(EnvTTLSeconds, "600")
	t.Setenv(EnvMaxSize, "512")
	t.Setenv(EnvUseRedis, "true")
	t.Setenv(EnvRedisURL, "redis://cache.internal:6380/2")
	t.Setenv(EnvNamespace, "browse")
	t.Setenv(EnvRemoteTimeoutMs, "100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Enabled {
		t.Error("Enabled should be false")
	}
	if cfg.TTL != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", cfg.TTL)
	}
	if cfg.MaxSize != 512 {
		t.Errorf("MaxSize = %d, want 512", cfg.MaxSize)
	}
	if !cfg.UseRedis {
		t.Error("UseRedis should be true")
	}
	if cfg.RedisURL != "redis://cache.internal:6380/2" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.Namespace != "browse" {
		t.Errorf("Namespace = %q, want browse", cfg.Namespace)
	}
	if cfg.RemoteTimeout != 100*time.Millisecond {
		t.Errorf("RemoteTimeout = %v, want 100ms", cfg.RemoteTimeout)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := map[string]string{
		EnvEnabled:         "maybe",
		EnvTTLSeconds:      "five",
		EnvMaxSize:         "lots",
		EnvUseRedis:        "si",
		EnvRemoteTimeoutMs: "fast",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig should reject %s=%q", key, value)
			}
		})
	}
}

func TestLoadConfig_ExpandsRedisURL(t *testing.T) {
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv(EnvRedisURL, "redis://:${REDIS_PASSWORD}@cache.internal:6379/0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.RedisURL != "redis://:s3cret@cache.internal:6379/0" {
		t.Errorf("RedisURL = %q, expansion failed", cfg.RedisURL)
	}
}

func TestLoadConfig_MissingExpansionVariable(t *testing.T) {
	t.Setenv(EnvRedisURL, "redis://:${SEARCHCACHE_TEST_UNSET_VAR}@host:6379")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should fail when a referenced variable is unset")
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	got, err := expandEnvStrict("cost is $$5")
	if err != nil {
		t.Fatalf("expandEnvStrict failed: %v", err)
	}
	if got != "cost is $5" {
		t.Errorf("expandEnvStrict = %q, want %q", got, "cost is $5")
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero ttl", func(c *Config) { c.TTL = 0 }, true},
		{"negative ttl", func(c *Config) { c.TTL = -time.Second }, true},
		{"zero max size", func(c *Config) { c.MaxSize = 0 }, true},
		{"redis without url", func(c *Config) { c.UseRedis = true; c.RedisURL = "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	m, err := New(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !m.Enabled() {
		t.Error("manager should be enabled")
	}
	if m.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", m.TTL(), DefaultTTL)
	}
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.UseRedis = true
	cfg.RedisURL = "redis://" + mr.Addr()

	ctx := context.Background()
	m, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	compute := &countingCompute{result: []byte("R")}
	got, err := m.ReadThrough(ctx, Params{SearchTerm: "ontology", Limit: 10}, compute.fn)
	if err != nil {
		t.Fatalf("ReadThrough failed: %v", err)
	}
	if !bytes.Equal(got, []byte("R")) {
		t.Errorf("ReadThrough = %q, want R", got)
	}

	// The entry landed in Redis, under the configured namespace.
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("redis holds %d keys, want 1", len(keys))
	}
}

func TestNew_RedisUnreachableFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := DefaultConfig()
	cfg.UseRedis = true
	cfg.RedisURL = "redis://" + addr

	ctx := context.Background()
	m, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New should degrade, not fail: %v", err)
	}

	// Caching still works, now against the in-memory store.
	compute := &countingCompute{result: []byte("R")}
	params := Params{SearchTerm: "ontology", Limit: 10}
	_, _ = m.ReadThrough(ctx, params, compute.fn)
	_, _ = m.ReadThrough(ctx, params, compute.fn)
	if compute.calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1 (fallback store caching)", compute.calls.Load())
	}
}

func TestNew_InvalidConfigRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 0
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Error("New should reject an invalid configuration")
	}
}
