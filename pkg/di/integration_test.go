package di

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/goliatone/go-student-api/internal/httpapi"
	"github.com/goliatone/go-student-api/store"
)

type client struct {
	t    *testing.T
	base string
}

func newServer(t *testing.T, container *Container) *client {
	t.Helper()

	srv := httptest.NewServer(container.API())
	t.Cleanup(srv.Close)
	return &client{t: t, base: srv.URL + httpapi.Prefix}
}

func (c *client) do(method, path string, body any) (int, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

func mustDecode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func runLifecycle(t *testing.T, c *client) {
	t.Helper()

	status, body := c.do(http.MethodPost, "/students", map[string]any{"name": "Ada", "email": "ada@x.com"})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	created := mustDecode[store.Student](t, body)
	path := fmt.Sprintf("/students/%d", created.ID)

	status, body = c.do(http.MethodGet, path, nil)
	if status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", status)
	}
	if got := mustDecode[store.Student](t, body); got.Name != "Ada" || got.Email != "ada@x.com" {
		t.Errorf("get: unexpected student %+v", got)
	}

	status, body = c.do(http.MethodPut, path, map[string]any{"age": 30})
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, body)
	}

	status, body = c.do(http.MethodGet, path, nil)
	if status != http.StatusOK {
		t.Fatalf("get after update: expected 200, got %d", status)
	}
	if got := mustDecode[store.Student](t, body); got.Age == nil || *got.Age != 30 {
		t.Errorf("get after update: expected age 30, got %v", got.Age)
	}

	status, _ = c.do(http.MethodDelete, path, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}

	status, _ = c.do(http.MethodGet, path, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", status)
	}

	status, body = c.do(http.MethodGet, "/students", nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("list after delete: expected 200 [], got %d %s", status, body)
	}
}

func TestIntegration_MemoryCache(t *testing.T) {
	container := newTestContainer(t, testConfig())
	runLifecycle(t, newServer(t, container))

	stats, err := container.Cache().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Hits+stats.Misses == 0 {
		t.Error("Expected cache to be consulted")
	}
}

func TestIntegration_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.CacheURL = "redis://" + mr.Addr() + "/0"
	container := newTestContainer(t, cfg)
	c := newServer(t, container)

	status, body := c.do(http.MethodPost, "/students", map[string]any{"name": "Grace", "email": "grace@example.com"})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	created := mustDecode[store.Student](t, body)

	c.do(http.MethodGet, fmt.Sprintf("/students/%d", created.ID), nil)
	c.do(http.MethodGet, "/students", nil)

	if !mr.Exists(fmt.Sprintf("students:id:%d", created.ID)) {
		t.Error("Expected student to be cached in redis")
	}
	if !mr.Exists("students:all") {
		t.Error("Expected list to be cached in redis")
	}

	status, _ = c.do(http.MethodPut, fmt.Sprintf("/students/%d", created.ID), map[string]any{"grade": "B"})
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", status)
	}
	if mr.Exists("students:all") {
		t.Error("Expected list entry to be invalidated after update")
	}

	status, body = c.do(http.MethodGet, "/cache/stats", nil)
	if status != http.StatusOK {
		t.Fatalf("cache stats: expected 200, got %d: %s", status, body)
	}
	if stats := mustDecode[map[string]any](t, body); stats["backend"] != "redis" {
		t.Errorf("Expected redis backend, got %v", stats["backend"])
	}
}

func TestIntegration_RedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.CacheURL = "redis://" + mr.Addr()
	container := newTestContainer(t, cfg)
	c := newServer(t, container)

	mr.SetError("LOADING redis is loading the dataset in memory")

	runLifecycle(t, c)

	status, _ := c.do(http.MethodGet, "/cache/stats", nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("cache stats: expected 503 while redis is down, got %d", status)
	}
	status, _ = c.do(http.MethodGet, "/healthcheck", nil)
	if status != http.StatusOK {
		t.Errorf("healthcheck: expected 200, got %d", status)
	}
}

func TestIntegration_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.CacheURL = "off"
	container := newTestContainer(t, cfg)
	runLifecycle(t, newServer(t, container))
}

func TestIntegration_MetricsAndStats(t *testing.T) {
	container := newTestContainer(t, testConfig())
	c := newServer(t, container)

	c.do(http.MethodGet, "/healthcheck", nil)
	c.do(http.MethodGet, "/students/999", nil)

	status, body := c.do(http.MethodGet, "/metrics", nil)
	if status != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", status)
	}
	for _, want := range []string{
		`studentapi_http_requests_total{endpoint="healthcheck",method="GET",status="200"} 1`,
		`studentapi_http_requests_total{endpoint="get_student",method="GET",status="404"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	status, body = c.do(http.MethodGet, "/stats", nil)
	if status != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", status)
	}
	snap := mustDecode[map[string]any](t, body)
	if snap["total_requests"] != float64(3) {
		t.Errorf("Expected 3 recorded requests, got %v", snap["total_requests"])
	}
}

func TestIntegration_ConcurrentClients(t *testing.T) {
	container := newTestContainer(t, testConfig())
	c := newServer(t, container)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			data, _ := json.Marshal(map[string]any{"name": fmt.Sprintf("Student %d", i), "email": fmt.Sprintf("s%d@example.com", i)})
			resp, err := http.Post(c.base+"/students", "application/json", bytes.NewReader(data))
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("worker %d: expected 201, got %d", i, resp.StatusCode)
				return
			}

			resp, err = http.Get(c.base + "/students")
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("worker %d: list expected 200, got %d", i, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	_, body := c.do(http.MethodGet, "/students", nil)
	if got := mustDecode[[]store.Student](t, body); len(got) != workers {
		t.Errorf("Expected %d students, got %d", workers, len(got))
	}
}
