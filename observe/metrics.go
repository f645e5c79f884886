package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache-layer metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording never blocks the request path.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a cache lookup outcome.
	RecordLookup(ctx context.Context, meta CacheMeta, hit bool)

	// RecordCompute records one invocation of the wrapped computation.
	RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error)

	// RecordInvalidation records a full-cache invalidation and how many
	// entries it removed.
	RecordInvalidation(ctx context.Context, meta CacheMeta, removed int64)

	// RecordBackendError records a store operation failure (get/set/clear).
	RecordBackendError(ctx context.Context, meta CacheMeta, op string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookups       metric.Int64Counter
	computeErrors metric.Int64Counter
	computeMs     metric.Float64Histogram
	invalidations metric.Int64Counter
	removed       metric.Int64Counter
	backendErrors metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Total number of cache lookups, by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computeErrors, err := meter.Int64Counter(
		"cache.compute.errors",
		metric.WithDescription("Total number of failed wrapped computations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	computeMs, err := meter.Float64Histogram(
		"cache.compute.duration_ms",
		metric.WithDescription("Wrapped computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"cache.invalidations.total",
		metric.WithDescription("Total number of full-cache invalidations"),
		metric.WithUnit("{invalidation}"),
	)
	if err != nil {
		return nil, err
	}

	removed, err := meter.Int64Counter(
		"cache.invalidations.removed",
		metric.WithDescription("Total number of entries removed by invalidations"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	backendErrors, err := meter.Int64Counter(
		"cache.backend.errors",
		metric.WithDescription("Total number of store operation failures, by op"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:       lookups,
		computeErrors: computeErrors,
		computeMs:     computeMs,
		invalidations: invalidations,
		removed:       removed,
		backendErrors: backendErrors,
	}, nil
}

func metaAttrs(meta CacheMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("cache.backend", meta.Backend),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("cache.namespace", meta.Namespace))
	}
	return attrs
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta CacheMeta, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := append(metaAttrs(meta), attribute.String("result", result))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(metaAttrs(meta)...)
	if err != nil {
		m.computeErrors.Add(ctx, 1, opt)
	}
	m.computeMs.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, meta CacheMeta, removed int64) {
	opt := metric.WithAttributes(metaAttrs(meta)...)
	m.invalidations.Add(ctx, 1, opt)
	if removed > 0 {
		m.removed.Add(ctx, removed, opt)
	}
}

func (m *metricsImpl) RecordBackendError(ctx context.Context, meta CacheMeta, op string) {
	attrs := append(metaAttrs(meta), attribute.String("op", op))
	m.backendErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

func (m *noopMetrics) RecordLookup(context.Context, CacheMeta, bool)                  {}
func (m *noopMetrics) RecordCompute(context.Context, CacheMeta, time.Duration, error) {}
func (m *noopMetrics) RecordInvalidation(context.Context, CacheMeta, int64)           {}
func (m *noopMetrics) RecordBackendError(context.Context, CacheMeta, string)          {}
