// Package handler implements the HTTP handlers for the shift simulator API.
// All handlers are methods on Server; they are split into files by concern
// (simulate.go, debug.go, health.go) but share the same dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/metrics"
	"github.com/pkordes/shiftsim/internal/service"
	"github.com/pkordes/shiftsim/spec"
)

// Simulator builds a counterfactual day. Defining the interface here (in the
// consumer package) lets handler tests inject a fake without a database.
type Simulator interface {
	SimulateDay(ctx context.Context, subjectID string, date time.Time, p service.SimulationParams) (domain.SimulationResult, error)
}

// BaselineComputer derives the observed day.
type BaselineComputer interface {
	Compute(ctx context.Context, subjectID string, date time.Time) (domain.BaselineMetrics, error)
}

// Scorer is the ride-scoring capability exposed on the debug routes.
type Scorer interface {
	Score(ctx context.Context, tripID string) (float64, bool)
	ClearCache(ctx context.Context) error
}

// HexRinger resolves zone neighbourhoods.
type HexRinger interface {
	Ring(zone string, k int) []string
}

// Pinger reports whether the trip log database is reachable.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs. DB may be nil, in which case
// /api/health reports the database as down.
type Deps struct {
	Simulator Simulator
	Baseline  BaselineComputer
	Scorer    Scorer
	Hex       HexRinger
	DB        Pinger
	// DefaultRingK is used by /debug/h3/kring when k is omitted.
	DefaultRingK int
	Logger       *slog.Logger
}

// Server serves every API endpoint.
type Server struct {
	sim      Simulator
	baseline BaselineComputer
	scorer   Scorer
	hex      HexRinger
	db       Pinger
	ringK    int
	logger   *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sim:      d.Simulator,
		baseline: d.Baseline,
		scorer:   d.Scorer,
		hex:      d.Hex,
		db:       d.DB,
		ringK:    d.DefaultRingK,
		logger:   logger,
	}
}

// Routes returns the API router. Cross-cutting middleware (request ids,
// logging, CORS) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/api/health", s.GetAPIHealth)

	r.Get("/simulate", s.GetSimulate)
	r.Get("/simulate/timeline", s.GetSimulateTimeline)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/sim", s.GetDebugSim)
		r.Get("/baseline", s.GetDebugBaseline)
		r.Get("/h3/kring", s.GetKRing)
		r.Get("/ml/score", s.GetScores)
		r.Post("/ml/clear-cache", s.PostClearCache)
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})

	return r
}
