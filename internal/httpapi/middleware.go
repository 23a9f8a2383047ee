package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id attached to ctx by the API, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID reuses an inbound X-Request-ID or generates one, and echoes it.
func (a *API) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestLogger returns the API logger annotated with the request id.
func (a *API) requestLogger(r *http.Request) log.Logger {
	if id := RequestID(r.Context()); id != "" {
		return log.With(a.logger, "request_id", id)
	}
	return a.logger
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// instrument records one counter increment and one latency sample per
// request in a deferred finalizer. A panic is recovered and answered with a
// 500 unless the response was already started, in which case the recorded
// status is the one already sent.
func (a *API) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			p := recover()
			if p != nil && p != http.ErrAbortHandler {
				level.Error(a.requestLogger(r)).Log(
					"msg", "panic serving request",
					"endpoint", endpoint,
					"panic", fmt.Sprint(p),
					"stack", string(debug.Stack()),
				)
				// A started response keeps the status the client already saw.
				if !rec.wroteHeader {
					writeJSON(rec, r, http.StatusInternalServerError, errorBody{
						Error:   codeInternal,
						Message: messageInternal,
					})
				}
			}

			elapsed := time.Since(start)
			a.metrics.Record(r.Method, endpoint, rec.status, elapsed)
			level.Debug(a.requestLogger(r)).Log(
				"msg", "request served",
				"method", r.Method,
				"path", r.URL.Path,
				"endpoint", endpoint,
				"status", rec.status,
				"duration", elapsed,
			)

			if p == http.ErrAbortHandler {
				panic(p)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// promLogger adapts a go-kit logger to promhttp.Logger.
type promLogger struct {
	logger log.Logger
}

func (p promLogger) Println(v ...interface{}) {
	level.Error(p.logger).Log("msg", "metrics exposition failed", "err", fmt.Sprintln(v...))
}
