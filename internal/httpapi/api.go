// Package httpapi serves the student REST API.
//
// Every route is wrapped by the same middleware chain: a request id is
// attached, the handler runs, and a deferred finalizer records exactly one
// counter increment and one latency sample for the request, whatever the
// outcome (including panics). Handlers return errors; a single adapter maps
// them to status codes and JSON error bodies.
package httpapi

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-student-api/cache"
	"github.com/goliatone/go-student-api/metrics"
	"github.com/goliatone/go-student-api/store"
)

// Prefix is the path prefix of every route.
const Prefix = "/api/v1"

// Endpoint labels used for metrics and logs.
const (
	EndpointCreateStudent = "create_student"
	EndpointListStudents  = "list_students"
	EndpointGetStudent    = "get_student"
	EndpointUpdateStudent = "update_student"
	EndpointDeleteStudent = "delete_student"
	EndpointHealthcheck   = "healthcheck"
	EndpointReady         = "ready"
	EndpointMetrics       = "metrics"
	EndpointCacheStats    = "cache_stats"
	EndpointStats         = "stats"
	EndpointNotFound      = "not_found"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	// Store serves student operations. It is normally a caching decorator.
	Store store.Store
	// Cache backs the cache stats endpoint. Nil reports the cache as unavailable.
	Cache *cache.Layer
	// Metrics records per request counters and latencies. Required.
	Metrics *metrics.Collector
	// Gatherer is exposed at the metrics endpoint. Defaults to a registry
	// holding only Metrics.
	Gatherer prometheus.Gatherer
	Logger   log.Logger
}

// API holds the handlers and their dependencies.
type API struct {
	store    store.Store
	cache    *cache.Layer
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	logger   log.Logger
	handler  http.Handler
}

// handlerFunc is an http handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// New builds the API and its route table.
func New(d Deps) *API {
	a := &API{
		store:    d.Store,
		cache:    d.Cache,
		metrics:  d.Metrics,
		gatherer: d.Gatherer,
		logger:   d.Logger,
	}
	if a.logger == nil {
		a.logger = log.NewNopLogger()
	}
	a.logger = log.With(a.logger, "component", "http")
	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}
	if a.gatherer == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(a.metrics)
		a.gatherer = reg
	}

	a.handler = a.withRequestID(a.routes())
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Metrics returns the collector requests are recorded in.
func (a *API) Metrics() *metrics.Collector {
	return a.metrics
}

func (a *API) routes() *http.ServeMux {
	mux := http.NewServeMux()

	a.handle(mux, "POST "+Prefix+"/students", EndpointCreateStudent, a.createStudent)
	a.handle(mux, "GET "+Prefix+"/students", EndpointListStudents, a.listStudents)
	a.handle(mux, "GET "+Prefix+"/students/{id}", EndpointGetStudent, a.getStudent)
	a.handle(mux, "PUT "+Prefix+"/students/{id}", EndpointUpdateStudent, a.updateStudent)
	a.handle(mux, "DELETE "+Prefix+"/students/{id}", EndpointDeleteStudent, a.deleteStudent)

	a.handle(mux, "GET "+Prefix+"/healthcheck", EndpointHealthcheck, a.healthcheck)
	a.handle(mux, "GET "+Prefix+"/ready", EndpointReady, a.ready)
	a.handle(mux, "GET "+Prefix+"/cache/stats", EndpointCacheStats, a.cacheStats)
	a.handle(mux, "GET "+Prefix+"/stats", EndpointStats, a.stats)
	mux.Handle("GET "+Prefix+"/metrics", a.instrument(EndpointMetrics,
		promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{ErrorLog: promLogger{a.logger}})))

	a.handle(mux, "/", EndpointNotFound, a.notFound)
	return mux
}

// handle registers h under pattern with instrumentation and error mapping.
func (a *API) handle(mux *http.ServeMux, pattern, endpoint string, h handlerFunc) {
	mux.Handle(pattern, a.instrument(endpoint, a.adapt(endpoint, h)))
}

// adapt turns a handlerFunc into an http.Handler by writing returned errors.
func (a *API) adapt(endpoint string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			a.writeError(w, r, endpoint, err)
		}
	})
}
