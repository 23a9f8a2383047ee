package cacheinfra

import (
	"context"
	"time"
)

// NoopBackend is used when caching is turned off. Every read misses.
type NoopBackend struct{}

// NewNoopBackend returns a backend that stores nothing.
func NewNoopBackend() NoopBackend { return NoopBackend{} }

// Get always reports ErrMiss.
func (NoopBackend) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

// Set discards the value.
func (NoopBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Invalidate removes nothing and reports zero keys.
func (NoopBackend) Invalidate(context.Context, string) (int, error) { return 0, nil }

// Stats names the backend "none" and returns ErrDisabled so callers can
// report the cache as unavailable.
func (NoopBackend) Stats(context.Context) (BackendStats, error) {
	return BackendStats{Backend: "none"}, ErrDisabled
}

// Ping returns ErrDisabled.
func (NoopBackend) Ping(context.Context) error { return ErrDisabled }

// Close is a no-op.
func (NoopBackend) Close() error { return nil }
