package cache

import (
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// KeySerializer builds cache keys from a method name and arguments.
// All keys it produces share Namespace so they can be invalidated together.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
	Namespace() string
	// Pattern matches every key in the namespace.
	Pattern() string
}

// namespacedKeySerializer produces keys of the form namespace:method:arg...
type namespacedKeySerializer struct {
	namespace string
}

// NewKeySerializer creates a serializer for the given namespace, e.g. "students".
func NewKeySerializer(namespace string) KeySerializer {
	return &namespacedKeySerializer{namespace: namespace}
}

func (s *namespacedKeySerializer) Namespace() string { return s.namespace }

func (s *namespacedKeySerializer) Pattern() string {
	return s.namespace + KeySeparator + "*"
}

// SerializeKey builds e.g. "students:all" or "students:id:42".
func (s *namespacedKeySerializer) SerializeKey(method string, args ...any) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, s.namespace, method)
	for _, arg := range args {
		parts = append(parts, serializeValue(arg))
	}
	return strings.Join(parts, KeySeparator)
}

// serializeValue renders basic values directly and slices element by element.
// Glob metacharacters are escaped so an argument can never widen an
// invalidation pattern built from a key.
func serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = serializeValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}

	return escapeGlob(fmt.Sprintf("%v", v))
}

var globEscaper = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
