package testsupport

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-student-api/cache"
	"github.com/goliatone/go-student-api/store"
)

// MemoryDSN is an in-memory SQLite database private to one connection.
const MemoryDSN = "sqlite:///:memory:"

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest interface{}) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadReader creates an io.Reader from fixture data.
// Useful as a request body.
func LoadReader(t testing.TB, path string) io.Reader {
	t.Helper()

	return strings.NewReader(string(LoadFixture(t, path)))
}

// CompareWithGolden compares actual data with expected data from a golden file.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			writeGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

func writeGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// NewDB opens an in-memory SQLite database with the students table created.
// It is closed when the test ends.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	ctx := context.Background()
	db, err := store.Open(ctx, MemoryDSN, log.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.New(db).EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// NewStore returns a store backed by a fresh in-memory database.
func NewStore(t testing.TB) *store.BunStore {
	t.Helper()

	return store.New(NewDB(t))
}

// NewCacheLayer returns an in-process cache layer that is closed when the test ends.
func NewCacheLayer(t testing.TB, ttl time.Duration) *cache.Layer {
	t.Helper()

	cfg := cache.DefaultConfig()
	if ttl > 0 {
		cfg.TTL = ttl
	}
	backend, err := cache.NewBackend(cfg)
	if err != nil {
		t.Fatalf("failed to create cache backend: %v", err)
	}
	layer := cache.NewLayer(backend, cfg.TTL, nil)
	t.Cleanup(func() { layer.Close() })
	return layer
}

// SeedStudents creates each student in s and returns them in order.
func SeedStudents(t testing.TB, s store.Store, students ...store.NewStudent) []*store.Student {
	t.Helper()

	out := make([]*store.Student, 0, len(students))
	for _, in := range students {
		created, err := s.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("failed to seed student %q: %v", in.Email, err)
		}
		out = append(out, created)
	}
	return out
}
