package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultWindowSize is the number of latency samples kept for rolling averages.
const DefaultWindowSize = 1000

const namespace = "studentapi"

// Option configures a Collector.
type Option func(*Collector)

// WithWindowSize overrides DefaultWindowSize. Non-positive values are ignored.
func WithWindowSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.windowSize = n
		}
	}
}

// WithBuckets sets the buckets of the request duration histogram.
func WithBuckets(buckets []float64) Option {
	return func(c *Collector) {
		if len(buckets) > 0 {
			c.buckets = buckets
		}
	}
}

// Collector records request counts and latencies. It is safe for concurrent
// use and implements prometheus.Collector.
type Collector struct {
	windowSize int
	buckets    []float64

	requests *xsync.MapOf[string, *xsync.Counter]
	window   *window
	duration *prometheus.HistogramVec

	requestsDesc *prometheus.Desc
	averageDesc  *prometheus.Desc
	samplesDesc  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New creates a Collector and registers it with reg when reg is not nil.
func New(reg prometheus.Registerer, opts ...Option) *Collector {
	c := &Collector{
		windowSize: DefaultWindowSize,
		buckets:    prometheus.DefBuckets,
		requests:   xsync.NewMapOf[string, *xsync.Counter](),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.window = newWindow(c.windowSize)
	c.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution per endpoint",
		Buckets:   c.buckets,
	}, []string{"endpoint"})

	c.requestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "http_requests_total"),
		"Total HTTP requests by method, endpoint and status code",
		[]string{"method", "endpoint", "status"}, nil,
	)
	c.averageDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "http_request_latency_average_seconds"),
		"Average latency over the rolling sample window per endpoint",
		[]string{"endpoint"}, nil,
	)
	c.samplesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "http_request_latency_window_samples"),
		"Number of latency samples currently held in the rolling window",
		nil, nil,
	)

	if reg != nil {
		reg.MustRegister(c)
	}
	return c
}

// Increment bumps the counter for (method, endpoint, status).
func (c *Collector) Increment(method, endpoint string, status int) {
	counter, _ := c.requests.LoadOrCompute(requestKey(method, endpoint, status), func() *xsync.Counter {
		return xsync.NewCounter()
	})
	counter.Inc()
}

// ObserveLatency appends a sample to the rolling window, evicting the oldest
// one when full, and records it in the duration histogram.
func (c *Collector) ObserveLatency(endpoint string, d time.Duration) {
	c.window.add(endpoint, d)
	c.duration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Record is Increment followed by ObserveLatency.
func (c *Collector) Record(method, endpoint string, status int, d time.Duration) {
	c.Increment(method, endpoint, status)
	c.ObserveLatency(endpoint, d)
}

// Count returns the current value of a single counter.
func (c *Collector) Count(method, endpoint string, status int) int64 {
	counter, ok := c.requests.Load(requestKey(method, endpoint, status))
	if !ok {
		return 0
	}
	return counter.Value()
}

// RequestCount is one counter in a Snapshot.
type RequestCount struct {
	Method   string `json:"method"`
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status"`
	Count    int64  `json:"count"`
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	TotalRequests   int64              `json:"total_requests"`
	Requests        []RequestCount     `json:"requests"`
	LatencySamples  int                `json:"latency_samples"`
	WindowSize      int                `json:"window_size"`
	AverageLatency  float64            `json:"average_latency_seconds"`
	EndpointLatency map[string]float64 `json:"endpoint_latency_seconds"`
}

// Snapshot returns counters sorted by endpoint, method and status together
// with rolling latency averages.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:   c.requestCounts(),
		WindowSize: c.windowSize,
	}
	for _, rc := range snap.Requests {
		snap.TotalRequests += rc.Count
	}
	stats := c.window.stats()
	snap.LatencySamples = stats.samples
	snap.AverageLatency = stats.overall.Seconds()
	snap.EndpointLatency = make(map[string]float64, len(stats.perEndpoint))
	for endpoint, avg := range stats.perEndpoint {
		snap.EndpointLatency[endpoint] = avg.Seconds()
	}
	return snap
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsDesc
	ch <- c.averageDesc
	ch <- c.samplesDesc
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, rc := range c.requestCounts() {
		ch <- prometheus.MustNewConstMetric(c.requestsDesc, prometheus.CounterValue,
			float64(rc.Count), rc.Method, rc.Endpoint, strconv.Itoa(rc.Status))
	}

	stats := c.window.stats()
	for endpoint, avg := range stats.perEndpoint {
		ch <- prometheus.MustNewConstMetric(c.averageDesc, prometheus.GaugeValue, avg.Seconds(), endpoint)
	}
	ch <- prometheus.MustNewConstMetric(c.samplesDesc, prometheus.GaugeValue, float64(stats.samples))

	c.duration.Collect(ch)
}

func (c *Collector) requestCounts() []RequestCount {
	var out []RequestCount
	c.requests.Range(func(key string, counter *xsync.Counter) bool {
		method, endpoint, status := splitRequestKey(key)
		out = append(out, RequestCount{
			Method:   method,
			Endpoint: endpoint,
			Status:   status,
			Count:    counter.Value(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Endpoint != b.Endpoint {
			return a.Endpoint < b.Endpoint
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Status < b.Status
	})
	return out
}

const keySep = "|"

func requestKey(method, endpoint string, status int) string {
	return method + keySep + endpoint + keySep + strconv.Itoa(status)
}

// splitRequestKey reverses requestKey. The method never contains the
// separator, so the status is always the last field.
func splitRequestKey(key string) (method, endpoint string, status int) {
	method, rest, _ := strings.Cut(key, keySep)
	i := strings.LastIndex(rest, keySep)
	if i < 0 {
		return method, rest, 0
	}
	status, _ = strconv.Atoi(rest[i+1:])
	return method, rest[:i], status
}
