package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/shiftsim/internal/metrics"
)

// NewMetricsHandler records http_requests_total and
// http_request_duration_seconds for every request. The path label is the chi
// route pattern so query strings and ids do not explode cardinality.
func NewMetricsHandler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			labels := []string{r.Method, routePattern(r), strconv.Itoa(status)}
			metrics.HTTPRequests.WithLabelValues(labels...).Inc()
			metrics.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		})
	}
}
