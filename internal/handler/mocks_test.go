package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/handler"
	"github.com/pkordes/shiftsim/internal/service"
)

// mockSimulator is a test double for handler.Simulator.
type mockSimulator struct {
	simulateDay func(ctx context.Context, subjectID string, date time.Time, p service.SimulationParams) (domain.SimulationResult, error)
}

func (m *mockSimulator) SimulateDay(ctx context.Context, subjectID string, date time.Time, p service.SimulationParams) (domain.SimulationResult, error) {
	return m.simulateDay(ctx, subjectID, date, p)
}

// compile-time check: mockSimulator must satisfy handler.Simulator.
var _ handler.Simulator = (*mockSimulator)(nil)

type mockBaseline struct {
	compute func(ctx context.Context, subjectID string, date time.Time) (domain.BaselineMetrics, error)
}

func (m *mockBaseline) Compute(ctx context.Context, subjectID string, date time.Time) (domain.BaselineMetrics, error) {
	return m.compute(ctx, subjectID, date)
}

var _ handler.BaselineComputer = (*mockBaseline)(nil)

type mockScorer struct {
	score      func(ctx context.Context, id string) (float64, bool)
	clearCache func(ctx context.Context) error
}

func (m *mockScorer) Score(ctx context.Context, id string) (float64, bool) {
	return m.score(ctx, id)
}

func (m *mockScorer) ClearCache(ctx context.Context) error {
	return m.clearCache(ctx)
}

var _ handler.Scorer = (*mockScorer)(nil)

type mockRinger struct {
	ring func(zone string, k int) []string
}

func (m *mockRinger) Ring(zone string, k int) []string {
	return m.ring(zone, k)
}

var _ handler.HexRinger = (*mockRinger)(nil)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

var _ handler.Pinger = (*mockPinger)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server from deps the same way main.go mounts it.
func newHTTPHandler(d handler.Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return handler.NewServer(d).Routes()
}

func ptr[T any](v T) *T { return &v }

var testDay = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

// resultFixture is a finished run with one trip, one idle gap and a note.
func resultFixture() domain.SimulationResult {
	at := func(h, m int) time.Time {
		return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	}
	return domain.SimulationResult{
		RunID: "4f9c2d1e-0000-4000-8000-000000000001",
		Baseline: domain.BaselineMetrics{
			DriveMins:  40,
			Earnings:   20,
			IdleMins:   10,
			CityID:     "c1",
			ShiftStart: at(8, 0),
			ShiftEnd:   at(8, 50),
			StartZone:  "A",
			TripsCount: 2,
		},
		Simulated: domain.SimMetrics{
			DriveMins:  38,
			Earnings:   25,
			IdleMins:   5,
			TripsCount: 1,
		},
		Timeline: []domain.TimelineEvent{
			{Kind: domain.EventIdle, Start: at(8, 0), End: at(8, 5), FromZone: "A", ToZone: "A", Minutes: 5},
			{Kind: domain.EventTrip, Start: at(8, 5), End: at(8, 43), FromZone: "A", ToZone: "B", TripID: "r1", Earnings: ptr(25.0), Minutes: 38},
		},
		Notes: []string{"Tolerance clamped from 50 to 39 (baseline drive 40 min)."},
	}
}
