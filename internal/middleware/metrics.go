package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nordlane/cloudcrm/internal/metrics"
)

// UnmatchedRoute labels requests no chi route claimed (404s, scanners).
// Raw paths are never used as labels.
const UnmatchedRoute = "unmatched"

// statusRecorder remembers the first status written. Handlers that only
// call Write leave it at 200.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMetrics counts requests and observes latency labelled by the chi
// route pattern ("/api/v1/users/{id}/balance"), method and status. It runs
// outermost of the route-aware middlewares, so the pattern is read after
// the handler returns.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		route, status := routePattern(r), strconv.Itoa(sr.status)
		metrics.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		metrics.RequestLatency.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil || rc.RoutePattern() == "" {
		return UnmatchedRoute
	}
	return rc.RoutePattern()
}
