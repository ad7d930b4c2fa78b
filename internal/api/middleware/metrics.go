package middleware

import (
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics counts requests by method, matched route pattern and status.
// Requests that match no route are counted under "unmatched".
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			m.RecordHTTP(r.Method, routePattern(r), rec.statusCode())
		})
	}
}

// routePattern returns the chi pattern that matched r, once routing is done.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
