package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-student-api/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// URL selects the backend: memory:// (default), redis://..., rediss://...
	// or none to turn caching off.
	URL                string
	TTL                time.Duration
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch kind := c.backendKind(); kind {
	case "memory":
		return c.toInternal().Validate()
	case "redis", "none":
		if kind == "redis" && c.TTL <= 0 {
			return &cacheinfra.ConfigError{Field: "TTL", Message: "must be greater than 0"}
		}
		return nil
	default:
		return &cacheinfra.ConfigError{Field: "URL", Message: fmt.Sprintf("unsupported cache url %q", c.URL)}
	}
}

// NewBackend constructs the backend selected by cfg.URL.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.backendKind() {
	case "redis":
		b, err := cacheinfra.NewRedisBackend(cfg.URL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "none":
		return cacheinfra.NewNoopBackend(), nil
	default:
		b, err := cacheinfra.NewSturdycBackend(cfg.toInternal())
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func (c Config) backendKind() string {
	u := strings.ToLower(strings.TrimSpace(c.URL))
	switch {
	case u == "" || strings.HasPrefix(u, "memory:"):
		return "memory"
	case strings.HasPrefix(u, "redis://"), strings.HasPrefix(u, "rediss://"):
		return "redis"
	case u == "none" || u == "off" || u == "disabled":
		return "none"
	default:
		return "unknown"
	}
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		URL:                "memory://",
		TTL:                cfg.TTL,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
