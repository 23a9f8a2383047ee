// Package metrics counts requests per method, endpoint and status and keeps
// a bounded window of recent latencies.
//
// Counters never decrease. The latency window holds the most recent
// DefaultWindowSize samples; older samples are dropped first. A Collector
// is also a prometheus.Collector, so registering it exposes:
//
//	studentapi_http_requests_total{method,endpoint,status}
//	studentapi_http_request_latency_average_seconds{endpoint}
//	studentapi_http_request_latency_window_samples
//	studentapi_http_request_duration_seconds{endpoint}
//
// Snapshot returns the same data as a JSON friendly struct.
package metrics
