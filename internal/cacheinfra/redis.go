package cacheinfra

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisBackend stores entries in a Redis server.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend parses a redis:// or rediss:// URL. It does not contact the
// server; an unreachable server only degrades cache operations.
func NewRedisBackend(url string, ttl time.Duration) (*RedisBackend, error) {
	if ttl <= 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, &ConfigError{Field: "URL", Message: err.Error()}
	}
	return &RedisBackend{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Get returns the stored bytes or ErrMiss.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value with ttl, or the default TTL when ttl is not positive.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every key matching the glob pattern using SCAN.
func (r *RedisBackend) Invalidate(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Stats reads DBSIZE and the memory/stats sections of INFO.
func (r *RedisBackend) Stats(ctx context.Context) (BackendStats, error) {
	stats := BackendStats{Backend: "redis"}

	keys, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return stats, fmt.Errorf("redis dbsize: %w", err)
	}
	stats.Keys = keys

	// INFO support varies between servers and emulators; a failure here is
	// not a reason to report the cache as down.
	if info, err := r.client.Info(ctx, "memory", "stats").Result(); err == nil {
		fields := parseInfo(info)
		stats.MemoryBytes = fields["used_memory"]
		stats.ServerHits = fields["keyspace_hits"]
		stats.ServerMiss = fields["keyspace_misses"]
	}

	return stats, nil
}

// Ping checks that the server answers.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// parseInfo extracts integer fields from an INFO reply.
func parseInfo(info string) map[string]int64 {
	out := make(map[string]int64)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[k] = n
		}
	}
	return out
}
