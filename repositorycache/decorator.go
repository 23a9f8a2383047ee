package repositorycache

import (
	"context"
	"reflect"

	"github.com/jinzhu/inflection"

	"github.com/goliatone/go-student-api/cache"
	"github.com/goliatone/go-student-api/store"
)

// Interface assertion to ensure CachedStore implements store.Store
var _ store.Store = (*CachedStore)(nil)

// CachedStore decorates a base store with read-through caching
type CachedStore struct {
	base  store.Store
	layer *cache.Layer
	keys  cache.KeySerializer
}

// New creates a CachedStore that wraps base. The key namespace is derived
// from the Student type, so every key lives under "students:".
func New(base store.Store, layer *cache.Layer) *CachedStore {
	return NewWithKeys(base, layer, cache.NewKeySerializer(NamespaceFor(store.Student{})))
}

// NewWithKeys creates a CachedStore with an explicit key serializer.
func NewWithKeys(base store.Store, layer *cache.Layer, keys cache.KeySerializer) *CachedStore {
	return &CachedStore{
		base:  base,
		layer: layer,
		keys:  keys,
	}
}

// NamespaceFor returns the plural snake_case name of v's type, e.g.
// Student -> "students", CourseSection -> "course_sections".
func NamespaceFor(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return inflection.Plural(toSnake(t.Name()))
}

// Keys exposes the serializer used for this store's entries.
func (c *CachedStore) Keys() cache.KeySerializer {
	return c.keys
}

// Get retrieves a student by id, with caching. Not found results are never cached.
func (c *CachedStore) Get(ctx context.Context, id int64) (*store.Student, error) {
	if bypassFromContext(ctx) {
		return c.base.Get(ctx, id)
	}
	return cache.ReadThrough(ctx, c.layer, c.keys.SerializeKey("id", id), func(ctx context.Context) (*store.Student, error) {
		return c.base.Get(ctx, id)
	})
}

// List retrieves every student, with caching
func (c *CachedStore) List(ctx context.Context) ([]store.Student, error) {
	if bypassFromContext(ctx) {
		return c.base.List(ctx)
	}
	students, err := cache.ReadThrough(ctx, c.layer, c.keys.SerializeKey("all"), func(ctx context.Context) ([]store.Student, error) {
		return c.base.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []store.Student{}
	}
	return students, nil
}

// Create passes through to the base store and clears the namespace on success
func (c *CachedStore) Create(ctx context.Context, in store.NewStudent) (*store.Student, error) {
	result, err := c.base.Create(ctx, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// Update passes through to the base store and clears the namespace on success
func (c *CachedStore) Update(ctx context.Context, id int64, patch store.StudentPatch) (*store.Student, error) {
	result, err := c.base.Update(ctx, id, patch)
	if err == nil {
		c.invalidate(ctx)
	}
	return result, err
}

// Delete passes through to the base store and clears the namespace on success
func (c *CachedStore) Delete(ctx context.Context, id int64) error {
	err := c.base.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// Ping checks the base store only. Cache health is reported separately.
func (c *CachedStore) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

// invalidate drops every key in the namespace. A write to one student can
// change the list, so per-key invalidation is not enough.
func (c *CachedStore) invalidate(ctx context.Context) {
	if c.layer == nil {
		return
	}
	c.layer.Invalidate(ctx, c.keys.Pattern())
}
