package repositorycache

import (
	"context"
)

type cacheBypassContextKey struct{}

// WithCacheBypass marks ctx so reads skip the cache and go to the base store.
// Writes still invalidate. The HTTP layer sets it for Cache-Control: no-cache.
func WithCacheBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

func bypassFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(cacheBypassContextKey{}).(bool)
	return bypass
}
