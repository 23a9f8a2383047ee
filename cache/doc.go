// Package cache provides the best-effort caching layer used in front of the
// student store.
//
// # Overview
//
// This package exports:
//
//   - Backend: a byte oriented key-value store with TTL and glob invalidation
//   - Layer: wraps a Backend, encodes values with msgpack and never fails a caller
//   - ReadThrough: lookup, fetch on miss, populate
//   - KeySerializer: builds namespaced keys such as "students:all" and "students:id:42"
//
// Backends are selected from a URL with NewBackend:
//
//	memory://            in-process sturdyc cache (default)
//	redis://host:6379/0  Redis
//	none                 caching disabled, every read misses
//
// # Basic Usage
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	layer := cache.NewLayer(backend, 5*time.Minute, logger)
//	keys := cache.NewKeySerializer("students")
//
//	student, err := cache.ReadThrough(ctx, layer, keys.SerializeKey("id", 42), func(ctx context.Context) (*store.Student, error) {
//		return base.Get(ctx, 42)
//	})
//
//	// after a write
//	layer.Invalidate(ctx, keys.Pattern()) // "students:*"
//
// # Failure Semantics
//
// A cache outage must never fail a request. Layer turns every backend error
// into a miss (reads) or a no-op (writes, invalidation) and logs a warning.
// Entries that cannot be decoded are evicted and reported as misses. Only
// Stats surfaces backend errors so that the stats endpoint can answer 503.
//
// # Invalidation
//
// Invalidation is namespace wide: a write to any student clears every key
// under "students:". Staleness after a concurrent read-populate is bounded by
// the TTL (300 seconds by default).
package cache
