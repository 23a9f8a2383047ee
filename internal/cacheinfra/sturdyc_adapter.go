package cacheinfra

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/viccon/sturdyc"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrDisabled is returned by backends that do not store anything.
	ErrDisabled = errors.New("cache disabled")
)

// BackendStats is what a backend can report about itself.
type BackendStats struct {
	Backend     string `json:"backend"`
	Keys        int64  `json:"keys"`
	MemoryBytes int64  `json:"memory_bytes,omitempty"`
	ServerHits  int64  `json:"server_hits,omitempty"`
	ServerMiss  int64  `json:"server_misses,omitempty"`
}

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound for any entry. Per-entry TTLs passed to Set are
	// clamped to it. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// entry carries its own deadline so Set can honour TTLs shorter than the
// client wide one.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// SturdycBackend is an in-process backend built on a sturdyc client.
type SturdycBackend struct {
	client *sturdyc.Client[entry]
	ttl    time.Duration
	now    func() time.Time
}

// NewSturdycBackend validates cfg and creates the sturdyc client.
func NewSturdycBackend(cfg Config) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycBackend{client: client, ttl: cfg.TTL, now: time.Now}, nil
}

// Get returns the stored bytes or ErrMiss.
func (s *SturdycBackend) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !s.now().Before(e.expiresAt) {
		s.client.Delete(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set stores value under key. A non-positive ttl or one above the client TTL
// falls back to the client TTL.
func (s *SturdycBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > s.ttl {
		ttl = s.ttl
	}
	s.client.Set(key, entry{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

// Invalidate removes every key matching the glob pattern and returns how many
// were removed.
func (s *SturdycBackend) Invalidate(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range s.client.ScanKeys() {
		if ok, _ := path.Match(pattern, key); ok {
			s.client.Delete(key)
			removed++
		}
	}
	return removed, nil
}

// Stats reports the number of resident entries.
func (s *SturdycBackend) Stats(_ context.Context) (BackendStats, error) {
	return BackendStats{
		Backend: "memory",
		Keys:    int64(s.client.Size()),
	}, nil
}

// Ping always succeeds for the in-process backend.
func (s *SturdycBackend) Ping(context.Context) error { return nil }

// Close is a no-op; sturdyc has nothing to release.
func (s *SturdycBackend) Close() error { return nil }
