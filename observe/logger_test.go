package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not valid JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	ctx := context.Background()

	logger.Info(ctx, "cache hit", F("key", "search:abc"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "cache hit" {
		t.Errorf("msg = %v, want %q", entry["msg"], "cache hit")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["key"] != "search:abc" {
		t.Errorf("key = %v, want search:abc", entry["key"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("entry missing timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug msg")
	logger.Info(ctx, "info msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries at warn level, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_WithCache(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	ctx := context.Background()

	scoped := logger.WithCache(CacheMeta{Backend: "memory", Namespace: "search"})
	scoped.Info(ctx, "store initialized")

	entries := decodeLines(t, &buf)
	entry := entries[0]
	if entry["cache.backend"] != "memory" {
		t.Errorf("cache.backend = %v, want memory", entry["cache.backend"])
	}
	if entry["cache.namespace"] != "search" {
		t.Errorf("cache.namespace = %v, want search", entry["cache.namespace"])
	}

	// The parent logger stays unscoped.
	buf.Reset()
	logger.Info(ctx, "plain")
	entries = decodeLines(t, &buf)
	if _, ok := entries[0]["cache.backend"]; ok {
		t.Error("parent logger should not carry cache attributes")
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	ctx := context.Background()

	logger.Error(ctx, "backend init failed",
		F("redis_url", "redis://:hunter2@10.0.0.1:6379/0"),
		F("error", "connection refused"),
	)

	entries := decodeLines(t, &buf)
	entry := entries[0]
	if entry["redis_url"] != "[REDACTED]" {
		t.Errorf("redis_url = %v, want [REDACTED]", entry["redis_url"])
	}
	if entry["error"] != "connection refused" {
		t.Errorf("error = %v, want passthrough", entry["error"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Error("credential leaked into log output")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	ctx := context.Background()

	// Must not panic, and WithCache must return a usable logger.
	logger.WithCache(CacheMeta{Backend: "redis"}).Error(ctx, "ignored")
}
