package di

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-student-api/cache"
	"github.com/goliatone/go-student-api/internal/config"
	"github.com/goliatone/go-student-api/internal/httpapi"
	"github.com/goliatone/go-student-api/metrics"
	"github.com/goliatone/go-student-api/repositorycache"
	"github.com/goliatone/go-student-api/store"
)

// requestBuckets spans 0.5ms to about 4s. Cache hits land in the lowest buckets.
var requestBuckets = prometheus.ExponentialBuckets(0.0005, 2, 14)

// Container owns the long lived components of the service: the database,
// the cache layer, the cached student store, the metrics registry and the
// HTTP API built on top of them.
type Container struct {
	config   config.Config
	db       *bun.DB
	base     *store.BunStore
	layer    *cache.Layer
	students *repositorycache.CachedStore
	registry *prometheus.Registry
	metrics  *metrics.Collector
	api      *httpapi.API
	logger   log.Logger
}

// NewContainer opens the database, ensures the schema exists and wires the
// cache, metrics and API. A nil logger discards output.
func NewContainer(ctx context.Context, cfg config.Config, logger log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	base := store.New(db)
	if err := base.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.URL = cfg.CacheURL
	if cfg.CacheTTL > 0 {
		cacheCfg.TTL = cfg.CacheTTL
	}
	backend, err := cache.NewBackend(cacheCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	layer := cache.NewLayer(backend, cacheCfg.TTL, logger)
	if err := backend.Ping(ctx); err != nil {
		level.Warn(logger).Log("msg", "cache backend unavailable, requests will be served from the database", "err", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(registry, metrics.WithBuckets(requestBuckets))

	students := repositorycache.New(base, layer)

	c := &Container{
		config:   cfg,
		db:       db,
		base:     base,
		layer:    layer,
		students: students,
		registry: registry,
		metrics:  collector,
		logger:   logger,
	}
	c.api = httpapi.New(httpapi.Deps{
		Store:    students,
		Cache:    layer,
		Metrics:  collector,
		Gatherer: registry,
		Logger:   logger,
	})

	level.Info(logger).Log(
		"msg", "container ready",
		"environment", cfg.Environment,
		"database", db.Dialect().Name(),
		"cache", cacheCfg.URL,
		"cache_ttl", cacheCfg.TTL,
	)
	return c, nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Students returns the cached student store.
func (c *Container) Students() store.Store {
	return c.students
}

// BaseStore returns the uncached store.
func (c *Container) BaseStore() *store.BunStore {
	return c.base
}

// Cache returns the cache layer.
func (c *Container) Cache() *cache.Layer {
	return c.layer
}

// Metrics returns the request metrics collector.
func (c *Container) Metrics() *metrics.Collector {
	return c.metrics
}

// Registry returns the prometheus registry exposed at the metrics endpoint.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// API returns the HTTP handler.
func (c *Container) API() *httpapi.API {
	return c.api
}

// Close releases the cache backend and the database.
func (c *Container) Close() error {
	cacheErr := c.layer.Close()
	dbErr := c.db.Close()
	if dbErr != nil {
		return dbErr
	}
	return cacheErr
}
