package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Increment(t *testing.T) {
	c := New(nil)

	c.Increment("GET", "list_students", 200)
	c.Increment("GET", "list_students", 200)
	c.Increment("POST", "create_student", 201)
	c.Increment("POST", "create_student", 400)

	require.Equal(t, int64(2), c.Count("GET", "list_students", 200))
	require.Equal(t, int64(1), c.Count("POST", "create_student", 201))
	require.Equal(t, int64(1), c.Count("POST", "create_student", 400))
	require.Equal(t, int64(0), c.Count("DELETE", "delete_student", 200))
}

func TestCollector_IncrementConcurrent(t *testing.T) {
	c := New(nil)

	const workers, perWorker = 16, 250
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.Record("GET", "get_student", 200, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(workers*perWorker), c.Count("GET", "get_student", 200))
	snap := c.Snapshot()
	require.Equal(t, int64(workers*perWorker), snap.TotalRequests)
	require.Equal(t, DefaultWindowSize, snap.LatencySamples)
}

func TestCollector_WindowIsBoundedFIFO(t *testing.T) {
	c := New(nil, WithWindowSize(3))

	for i := 1; i <= 5; i++ {
		c.ObserveLatency("ep", time.Duration(i)*time.Millisecond)
	}

	got := c.window.ordered()
	require.Len(t, got, 3)
	assert.Equal(t, 3*time.Millisecond, got[0].duration, "oldest retained sample")
	assert.Equal(t, 4*time.Millisecond, got[1].duration)
	assert.Equal(t, 5*time.Millisecond, got[2].duration, "newest sample")

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.LatencySamples)
	assert.Equal(t, 3, snap.WindowSize)
	assert.InDelta(t, 0.004, snap.AverageLatency, 1e-9)
}

func TestCollector_DefaultWindow(t *testing.T) {
	c := New(nil)

	for i := 0; i < DefaultWindowSize+1; i++ {
		c.ObserveLatency("list_students", time.Duration(i+1)*time.Microsecond)
	}

	got := c.window.ordered()
	require.Len(t, got, DefaultWindowSize)
	assert.Equal(t, 2*time.Microsecond, got[0].duration, "the very first sample must be evicted")
	assert.Equal(t, time.Duration(DefaultWindowSize+1)*time.Microsecond, got[len(got)-1].duration)
}

func TestCollector_PerEndpointAverage(t *testing.T) {
	c := New(nil)

	c.ObserveLatency("list_students", 10*time.Millisecond)
	c.ObserveLatency("list_students", 30*time.Millisecond)
	c.ObserveLatency("get_student", 40*time.Millisecond)

	snap := c.Snapshot()
	assert.InDelta(t, 0.020, snap.EndpointLatency["list_students"], 1e-9)
	assert.InDelta(t, 0.040, snap.EndpointLatency["get_student"], 1e-9)
	assert.InDelta(t, 0.080/3, snap.AverageLatency, 1e-9)
}

func TestCollector_SnapshotOrdering(t *testing.T) {
	c := New(nil)

	c.Increment("PUT", "update_student", 200)
	c.Increment("GET", "get_student", 404)
	c.Increment("GET", "get_student", 200)
	c.Increment("DELETE", "delete_student", 200)

	snap := c.Snapshot()
	require.Len(t, snap.Requests, 4)
	assert.Equal(t, RequestCount{Method: "DELETE", Endpoint: "delete_student", Status: 200, Count: 1}, snap.Requests[0])
	assert.Equal(t, RequestCount{Method: "GET", Endpoint: "get_student", Status: 200, Count: 1}, snap.Requests[1])
	assert.Equal(t, RequestCount{Method: "GET", Endpoint: "get_student", Status: 404, Count: 1}, snap.Requests[2])
	assert.Equal(t, "update_student", snap.Requests[3].Endpoint)
	assert.Equal(t, int64(4), snap.TotalRequests)
}

func TestCollector_EmptySnapshot(t *testing.T) {
	snap := New(nil).Snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.LatencySamples)
	assert.Zero(t, snap.AverageLatency)
	assert.NotNil(t, snap.EndpointLatency)
}

func TestSplitRequestKey(t *testing.T) {
	method, endpoint, status := splitRequestKey(requestKey("GET", "weird|endpoint", 503))
	assert.Equal(t, "GET", method)
	assert.Equal(t, "weird|endpoint", endpoint)
	assert.Equal(t, 503, status)
}

func TestCollector_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Record("GET", "list_students", 200, 5*time.Millisecond)
	c.Record("POST", "create_student", 201, 15*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["studentapi_http_requests_total"])
	require.True(t, names["studentapi_http_request_latency_average_seconds"])
	require.True(t, names["studentapi_http_request_latency_window_samples"])
	require.True(t, names["studentapi_http_request_duration_seconds"])
}

func TestCollector_WithBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets []float64
		want    int
	}{
		{name: "custom", buckets: []float64{0.01, 0.1, 1}, want: 3},
		{name: "empty keeps defaults", buckets: nil, want: len(prometheus.DefBuckets)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			c := New(reg, WithBuckets(tt.buckets))
			c.Record("GET", "list_students", 200, 50*time.Millisecond)

			families, err := reg.Gather()
			require.NoError(t, err)

			var found bool
			for _, mf := range families {
				if mf.GetName() != "studentapi_http_request_duration_seconds" {
					continue
				}
				found = true
				require.Len(t, mf.GetMetric(), 1)
				h := mf.GetMetric()[0].GetHistogram()
				assert.Len(t, h.GetBucket(), tt.want)
				assert.Equal(t, uint64(1), h.GetSampleCount())
			}
			require.True(t, found)
		})
	}
}

func TestCollector_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Increment("GET", "list_students", 200)
	c.Increment("GET", "list_students", 200)
	c.Increment("GET", "get_student", 404)

	expected := `
# HELP studentapi_http_requests_total Total HTTP requests by method, endpoint and status code
# TYPE studentapi_http_requests_total counter
studentapi_http_requests_total{endpoint="get_student",method="GET",status="404"} 1
studentapi_http_requests_total{endpoint="list_students",method="GET",status="200"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "studentapi_http_requests_total"))

	c.ObserveLatency("list_students", 2*time.Second)
	expected = `
# HELP studentapi_http_request_latency_average_seconds Average latency over the rolling sample window per endpoint
# TYPE studentapi_http_request_latency_average_seconds gauge
studentapi_http_request_latency_average_seconds{endpoint="list_students"} 2
# HELP studentapi_http_request_latency_window_samples Number of latency samples currently held in the rolling window
# TYPE studentapi_http_request_latency_window_samples gauge
studentapi_http_request_latency_window_samples 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"studentapi_http_request_latency_average_seconds",
		"studentapi_http_request_latency_window_samples",
	))
	require.Equal(t, 1, testutil.CollectAndCount(c, "studentapi_http_request_duration_seconds"))
}
