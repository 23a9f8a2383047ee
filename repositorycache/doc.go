// Package repositorycache provides a caching decorator for store.Store.
//
// # Overview
//
// CachedStore wraps a base store and intercepts reads to serve them from a
// cache.Layer, while writes go straight to the base store and clear the
// cache namespace once they succeed.
//
// # Basic Usage
//
//	base := store.New(db)
//	layer := cache.NewLayer(backend, 5*time.Minute, logger)
//
//	students := repositorycache.New(base, layer)
//
//	// Use exactly like the base store
//	s, err := students.Get(ctx, 42)
//	all, err := students.List(ctx)
//
// # Cached vs Pass-through Operations
//
// Cached (read-through):
//   - Get     key "students:id:<id>"
//   - List    key "students:all"
//
// Pass-through, followed by invalidation of "students:*" on success:
//   - Create, Update, Delete
//
// Ping always reaches the base store.
//
// # Caching Behavior
//
//  1. Check the cache for the serialized key
//  2. On a hit, return the cached value
//  3. On a miss, call the base store
//  4. Store a successful result with the layer TTL
//  5. Return the result
//
// Errors from the base store, including store.ErrNotFound, are returned
// unchanged and never cached.
//
// # Bypassing the Cache
//
// WithCacheBypass marks a context so that reads skip the cache entirely.
// The HTTP layer uses it for requests carrying Cache-Control: no-cache.
//
// # Consistency
//
// A read that misses, fetches, and populates concurrently with a write may
// store a value that is stale by the time it lands. That staleness is bounded
// by the TTL. A store that is read by other processes should run with a
// shared Redis backend so invalidations are visible to every instance.
package repositorycache
