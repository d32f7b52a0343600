package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

// normalizePath folds the extension name path segment so labels stay bounded.
func normalizePath(path string) string {
	switch {
	case path == "/extensions",
		path == "/extensions/fixed",
		path == "/extensions/custom",
		path == "/validate/file",
		path == "/validate/files",
		path == "/metrics",
		path == "/test":
		return path
	case strings.HasPrefix(path, "/extensions/fixed/"):
		return "/extensions/fixed/:name"
	case strings.HasPrefix(path, "/extensions/custom/"):
		return "/extensions/custom/:name"
	default:
		return "other"
	}
}
