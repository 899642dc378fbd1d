package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/service"
)

// SimulateResponse is the body of GET /simulate.
type SimulateResponse struct {
	RunID        string                 `json:"run_id"`
	Baseline     domain.BaselineMetrics `json:"baseline"`
	Simulated    domain.SimMetrics      `json:"simulated"`
	Improvements domain.Improvements    `json:"improvements"`
	Timeline     []domain.TimelineEvent `json:"timeline"`
	Notes        []string               `json:"notes"`
}

// dayParams are the query parameters shared by every per-driver route.
type dayParams struct {
	DriverID string
	Date     time.Time
}

// bindDay reads driverId and date (YYYY-MM-DD). Both are required.
func bindDay(r *http.Request) (dayParams, error) {
	q := r.URL.Query()

	var driverID string
	if err := runtime.BindQueryParameter("form", true, true, "driverId", q, &driverID); err != nil {
		return dayParams{}, err
	}
	driverID = strings.TrimSpace(driverID)

	// Bound as a string: a struct destination such as openapi_types.Date is
	// treated as an exploded object and a missing value is not reported.
	var raw string
	if err := runtime.BindQueryParameter("form", true, true, "date", q, &raw); err != nil {
		return dayParams{}, err
	}
	date, err := time.Parse(openapi_types.DateFormat, strings.TrimSpace(raw))
	if err != nil {
		return dayParams{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", raw)
	}
	return dayParams{DriverID: driverID, Date: date}, nil
}

// bindSimulation reads the optional tol, lookahead and k overrides.
func bindSimulation(r *http.Request) (service.SimulationParams, error) {
	q := r.URL.Query()
	var p service.SimulationParams
	if err := runtime.BindQueryParameter("form", true, false, "tol", q, &p.ToleranceMinutes); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "lookahead", q, &p.LookaheadMinutes); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "k", q, &p.RingK); err != nil {
		return p, err
	}
	return p, nil
}

// simulate binds the request and runs the simulator. It writes the error
// response itself and reports ok=false when the caller should stop.
func (s *Server) simulate(w http.ResponseWriter, r *http.Request) (domain.SimulationResult, bool) {
	day, err := bindDay(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return domain.SimulationResult{}, false
	}
	params, err := bindSimulation(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return domain.SimulationResult{}, false
	}

	res, err := s.sim.SimulateDay(r.Context(), day.DriverID, day.Date, params)
	if err != nil {
		s.writeError(w, r, err)
		return domain.SimulationResult{}, false
	}
	return res, true
}

// GetSimulate handles GET /simulate?driverId=&date=[&tol=&lookahead=&k=].
// The response adds per-metric improvements over the baseline.
func (s *Server) GetSimulate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.simulate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SimulateResponse{
		RunID:        res.RunID,
		Baseline:     res.Baseline,
		Simulated:    res.Simulated,
		Improvements: domain.Compare(res.Baseline, res.Simulated),
		Timeline:     res.Timeline,
		Notes:        res.Notes,
	})
}

// GetDebugSim handles GET /debug/sim and returns the raw SimulationResult.
func (s *Server) GetDebugSim(w http.ResponseWriter, r *http.Request) {
	res, ok := s.simulate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSimulateTimeline handles GET /simulate/timeline.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetSimulateTimeline(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("format must be csv or json"))
		return
	}

	res, ok := s.simulate(w, r)
	if !ok {
		return
	}

	if format != nil && *format == "csv" {
		writeTimelineCSV(w, res.RunID, res.Timeline)
		return
	}
	writeJSON(w, http.StatusOK, res.Timeline)
}

// GetDebugBaseline handles GET /debug/baseline?driverId=&date=.
func (s *Server) GetDebugBaseline(w http.ResponseWriter, r *http.Request) {
	day, err := bindDay(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	b, err := s.baseline.Compute(r.Context(), day.DriverID, day.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
