package cache

import (
	"path"
	"testing"
)

func TestKeySerializer_SerializeKey(t *testing.T) {
	s := NewKeySerializer("students")

	id := int64(42)
	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{name: "list", method: "all", want: "students:all"},
		{name: "by id", method: "id", args: []any{int64(42)}, want: "students:id:42"},
		{name: "pointer arg", method: "id", args: []any{&id}, want: "students:id:42"},
		{name: "nil arg", method: "id", args: []any{nil}, want: "students:id:nil"},
		{name: "slice arg", method: "ids", args: []any{[]int{1, 2, 3}}, want: "students:ids:[1,2,3]"},
		{name: "multiple args", method: "page", args: []any{2, "asc"}, want: "students:page:2:asc"},
		{name: "glob chars escaped", method: "email", args: []any{"a*b?"}, want: `students:email:a\*b\?`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SerializeKey(tt.method, tt.args...); got != tt.want {
				t.Errorf("SerializeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeySerializer_Pattern(t *testing.T) {
	s := NewKeySerializer("students")

	if s.Namespace() != "students" {
		t.Errorf("expected namespace students, got %q", s.Namespace())
	}
	if s.Pattern() != "students:*" {
		t.Errorf("expected pattern students:*, got %q", s.Pattern())
	}

	for _, key := range []string{s.SerializeKey("all"), s.SerializeKey("id", 1), s.SerializeKey("id", 1000)} {
		ok, err := path.Match(s.Pattern(), key)
		if err != nil || !ok {
			t.Errorf("expected pattern to match %q", key)
		}
	}

	other := NewKeySerializer("courses").SerializeKey("all")
	if ok, _ := path.Match(s.Pattern(), other); ok {
		t.Errorf("pattern must not match keys of another namespace: %q", other)
	}
}

func TestKeySerializer_Deterministic(t *testing.T) {
	a := NewKeySerializer("students").SerializeKey("id", 5)
	b := NewKeySerializer("students").SerializeKey("id", int64(5))
	if a != b {
		t.Errorf("expected equal keys for equal ids, got %q and %q", a, b)
	}
}
