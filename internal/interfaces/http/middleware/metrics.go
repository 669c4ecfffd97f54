package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies by route pattern, so that
// /api/v1/plots/CH1 and /api/v1/plots/CH2 share one series.
func Metrics(m *prometheus.PlotInfoMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			m.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
