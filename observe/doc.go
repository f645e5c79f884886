// Package observe provides observability primitives for the search cache.
//
// It is pure instrumentation: structured JSON logging, OpenTelemetry metrics
// for cache lookups and invalidations, and tracing around the wrapped
// computation. No execution, no transport, no I/O beyond exporter setup.
// Consumers build an Observer once at startup and hand it to the cache
// wiring.
package observe
