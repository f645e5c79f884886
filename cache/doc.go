// Package cache provides a permission-scoped read-through result cache for
// an expensive graph search path.
//
// It derives deterministic SHA-256 keys from normalized query parameters and
// caller identity, stores opaque result payloads under a TTL in either a
// bounded in-memory LRU store or a shared Redis backend, and exposes a
// coarse invalidation entry point that clears everything whenever the
// underlying data mutates. Cache malfunctions are contained: any backend
// failure degrades to a miss, never to a request failure.
package cache
