// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SimulationRuns counts simulated days by how the run ended:
	// completed, bailed, or no_baseline.
	SimulationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "simulation_runs_total", Help: "Simulated days by outcome."},
		[]string{"outcome"},
	)
	// SimulationDuration tracks wall time of one simulated day in seconds.
	SimulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "simulation_duration_seconds", Help: "Simulated day duration in seconds.", Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}},
	)
	// SimulationOvershoots counts trips rejected for overshooting the drive target.
	SimulationOvershoots = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "simulation_overshoot_rejections_total", Help: "Trips rejected for overshooting the drive target."},
	)

	// ScoreLookups counts ride score lookups by result: hit, fetched, or unavailable.
	ScoreLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ride_score_lookups_total", Help: "Ride score lookups by result."},
		[]string{"result"},
	)
)

// RegisterDefault registers every collector on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SimulationRuns)
		Registry.MustRegister(SimulationDuration)
		Registry.MustRegister(SimulationOvershoots)
		Registry.MustRegister(ScoreLookups)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
