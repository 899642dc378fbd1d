package service_test

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/repo"
	"github.com/pkordes/shiftsim/internal/service"
)

// mockTripLog is a hand-written test double for repo.TripLog.
// Each method is a function field; set only the ones your test needs.
type mockTripLog struct {
	listBySubject func(ctx context.Context, subjectID string, from, to time.Time) ([]domain.Trip, error)
	listInWindow  func(ctx context.Context, cityID string, from, to time.Time, zoneIDs []string) ([]domain.Trip, error)
}

func (m *mockTripLog) ListBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]domain.Trip, error) {
	return m.listBySubject(ctx, subjectID, from, to)
}

func (m *mockTripLog) ListInWindow(ctx context.Context, cityID string, from, to time.Time, zoneIDs []string) ([]domain.Trip, error) {
	return m.listInWindow(ctx, cityID, from, to, zoneIDs)
}

// compile-time check: mockTripLog must satisfy repo.TripLog.
var _ repo.TripLog = (*mockTripLog)(nil)

// marketLog answers both queries from an in-memory trip list the way the
// Postgres implementation does: half-open day ranges, inclusive candidate
// windows, pickup zone filtering, start-time order.
func marketLog(trips ...domain.Trip) *mockTripLog {
	sorted := slices.Clone(trips)
	slices.SortStableFunc(sorted, func(a, b domain.Trip) int { return a.StartTS.Compare(b.StartTS) })

	return &mockTripLog{
		listBySubject: func(_ context.Context, subjectID string, from, to time.Time) ([]domain.Trip, error) {
			var out []domain.Trip
			for _, t := range sorted {
				if t.SubjectID == subjectID && !t.StartTS.Before(from) && t.StartTS.Before(to) {
					out = append(out, t)
				}
			}
			return out, nil
		},
		listInWindow: func(_ context.Context, cityID string, from, to time.Time, zoneIDs []string) ([]domain.Trip, error) {
			var out []domain.Trip
			for _, t := range sorted {
				if t.CityID == cityID && !t.StartTS.Before(from) && !t.StartTS.After(to) && slices.Contains(zoneIDs, t.PickupZone) {
					out = append(out, t)
				}
			}
			return out, nil
		},
	}
}

// mockScorer serves scores from a map; ids not in the map are unavailable.
type mockScorer struct {
	mu     sync.Mutex
	scores map[string]float64
	calls  []string
}

func (m *mockScorer) Score(_ context.Context, tripID string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, tripID)
	s, ok := m.scores[tripID]
	return s, ok
}

var _ service.Scorer = (*mockScorer)(nil)

// mockRinger returns the zone followed by extra, or calls ring when set.
type mockRinger struct {
	extra []string
	ring  func(zone string, k int) []string
}

func (m *mockRinger) Ring(zone string, k int) []string {
	if m.ring != nil {
		return m.ring(zone, k)
	}
	out := []string{zone}
	for _, z := range m.extra {
		if z != zone {
			out = append(out, z)
		}
	}
	return out
}

var _ service.HexRinger = (*mockRinger)(nil)

// ---- helpers ---------------------------------------------------------------

var day = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ptr[T any](v T) *T { return &v }

// job builds a trip in city c1 with an explicit end.
func job(id, driver, from, to string, start time.Time, duration, fare float64) domain.Trip {
	end := start.Add(time.Duration(duration * float64(time.Minute)))
	return domain.Trip{
		ID:           id,
		SubjectID:    driver,
		CityID:       "c1",
		PickupZone:   from,
		DropoffZone:  to,
		StartTS:      start,
		EndTS:        &end,
		DurationMins: &duration,
		Fare:         &fare,
	}
}

func newSimulator(log *mockTripLog, scorer service.Scorer, ringer service.HexRinger) *service.SimulationService {
	baseline := service.NewBaselineService(log, time.UTC, 30)
	return service.NewSimulationService(baseline, log, ringer, scorer, service.SimulationDefaults{
		RestThresholdMinutes: 30,
		LookaheadMinutes:     30,
		ToleranceMinutes:     5,
		RingK:                2,
	}, slog.New(slog.DiscardHandler))
}

func tripIDs(timeline []domain.TimelineEvent) []string {
	var ids []string
	for _, ev := range timeline {
		if ev.Kind == domain.EventTrip {
			ids = append(ids, ev.TripID)
		}
	}
	return ids
}

func kinds(timeline []domain.TimelineEvent) []domain.EventKind {
	out := make([]domain.EventKind, 0, len(timeline))
	for _, ev := range timeline {
		out = append(out, ev.Kind)
	}
	return out
}
