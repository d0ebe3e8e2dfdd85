package observability

import (
	"net/http"
	"strconv"
	"time"
)

// RouteFunc returns the route pattern that will serve r, or "" when no
// route matches. (*http.ServeMux).Handler provides one.
type RouteFunc func(r *http.Request) string

// Metrics returns middleware that records request metrics:
//   - vectorview_requests_total (counter): method, route pattern, status class
//   - vectorview_request_duration_seconds (histogram): method, route pattern
//
// Route patterns keep label cardinality bounded; a nil route labels every
// request "unknown" and unmatched requests are labelled "unmatched".
func Metrics(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			label := "unknown"
			if route != nil {
				label = route(r)
				if label == "" {
					label = "unmatched"
				}
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			statusStr := strconv.Itoa(sw.status/100) + "xx"
			RequestsTotal.WithLabelValues(r.Method, label, statusStr).Inc()
			RequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// The MCP streamable transport relies on it.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
