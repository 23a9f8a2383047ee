package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-student-api/internal/cacheinfra"
)

// DefaultTTL is used when a Layer is created without an explicit TTL.
const DefaultTTL = 300 * time.Second

var (
	// ErrMiss is returned by backends when a key is absent or expired.
	ErrMiss = cacheinfra.ErrMiss
	// ErrDisabled is returned by the no-op backend.
	ErrDisabled = cacheinfra.ErrDisabled
)

// BackendStats is the backend specific part of Stats.
type BackendStats = cacheinfra.BackendStats

// Backend is a byte oriented key-value store with expiry and glob invalidation.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) (int, error)
	Stats(ctx context.Context) (BackendStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// FetchFn is the function signature ReadThrough expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Stats is the view exposed by the cache stats endpoint.
type Stats struct {
	BackendStats
	Available bool    `json:"available"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRatio  float64 `json:"hit_ratio"`
	TTL       float64 `json:"ttl_seconds"`
}

// Layer is a best-effort cache. Backend failures never reach the caller:
// reads degrade to a miss, writes and invalidations to a no-op, and each
// failure is logged as a warning.
type Layer struct {
	backend Backend
	ttl     time.Duration
	logger  log.Logger
	hits    *xsync.Counter
	misses  *xsync.Counter
}

// NewLayer wraps backend. A non-positive ttl selects DefaultTTL.
func NewLayer(backend Backend, ttl time.Duration, logger log.Logger) *Layer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Layer{
		backend: backend,
		ttl:     ttl,
		logger:  log.With(logger, "component", "cache"),
		hits:    xsync.NewCounter(),
		misses:  xsync.NewCounter(),
	}
}

// TTL returns the default entry lifetime.
func (l *Layer) TTL() time.Duration { return l.ttl }

// Get decodes the value stored under key into dst and reports whether it was a hit.
func (l *Layer) Get(ctx context.Context, key string, dst any) bool {
	raw, err := l.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			level.Warn(l.logger).Log("msg", "cache get failed, treating as miss", "key", key, "err", err)
		}
		l.misses.Inc()
		return false
	}

	if err := msgpack.Unmarshal(raw, dst); err != nil {
		level.Warn(l.logger).Log("msg", "undecodable cache entry, evicting", "key", key, "err", err)
		l.misses.Inc()
		if _, err := l.backend.Invalidate(ctx, key); err != nil {
			level.Warn(l.logger).Log("msg", "cache evict failed", "key", key, "err", err)
		}
		return false
	}

	l.hits.Inc()
	return true
}

// Set encodes value and stores it under key. A non-positive ttl uses the layer TTL.
func (l *Layer) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = l.ttl
	}
	raw, err := msgpack.Marshal(value)
	if err != nil {
		level.Warn(l.logger).Log("msg", "cache encode failed", "key", key, "err", err)
		return
	}
	if err := l.backend.Set(ctx, key, raw, ttl); err != nil {
		level.Warn(l.logger).Log("msg", "cache set failed", "key", key, "err", err)
	}
}

// Invalidate deletes every key matching the glob pattern.
func (l *Layer) Invalidate(ctx context.Context, pattern string) {
	n, err := l.backend.Invalidate(ctx, pattern)
	if err != nil {
		level.Warn(l.logger).Log("msg", "cache invalidate failed", "pattern", pattern, "err", err)
		return
	}
	level.Debug(l.logger).Log("msg", "cache invalidated", "pattern", pattern, "keys", n)
}

// Stats merges layer counters with backend statistics. It returns an error
// when the backend is unreachable or disabled.
func (l *Layer) Stats(ctx context.Context) (Stats, error) {
	hits, misses := l.hits.Value(), l.misses.Value()
	stats := Stats{
		Hits:   hits,
		Misses: misses,
		TTL:    l.ttl.Seconds(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}

	if err := l.backend.Ping(ctx); err != nil {
		return stats, err
	}
	backendStats, err := l.backend.Stats(ctx)
	if err != nil {
		return stats, err
	}
	stats.BackendStats = backendStats
	stats.Available = true
	return stats, nil
}

// Close releases the backend.
func (l *Layer) Close() error {
	return l.backend.Close()
}

// ReadThrough returns the cached value for key, or calls fetch, caches its
// result with the layer TTL and returns it. Fetch errors are returned as is
// and never cached. A nil layer always fetches.
func ReadThrough[T any](ctx context.Context, l *Layer, key string, fetch FetchFn[T]) (T, error) {
	if l == nil {
		return fetch(ctx)
	}

	var cached T
	if l.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.Set(ctx, key, value, 0)
	return value, nil
}
