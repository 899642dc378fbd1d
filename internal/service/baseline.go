// Package service contains the shift simulator's business logic: the observed
// baseline of a subject's day and the greedy counterfactual day built from it.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/repo"
)

// DefaultRestThresholdMinutes is the idle gap length that counts as rest.
const DefaultRestThresholdMinutes = 30.0

// BaselineService derives a subject's observed day from the trip log.
type BaselineService struct {
	trips         repo.TripLog
	loc           *time.Location
	restThreshold float64
}

// NewBaselineService constructs a BaselineService. Calendar days are resolved
// in loc; a nil loc means UTC. A non-positive restThreshold uses
// DefaultRestThresholdMinutes.
func NewBaselineService(trips repo.TripLog, loc *time.Location, restThreshold float64) *BaselineService {
	if loc == nil {
		loc = time.UTC
	}
	if restThreshold <= 0 {
		restThreshold = DefaultRestThresholdMinutes
	}
	return &BaselineService{trips: trips, loc: loc, restThreshold: restThreshold}
}

// Location returns the zone calendar days are resolved in.
func (s *BaselineService) Location() *time.Location {
	return s.loc
}

// DayRange returns the absolute [start, end) of date's calendar day in loc.
// Only the year, month and day of date are used.
func DayRange(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Compute returns the baseline for subjectID on date. A day without trips is
// not an error: the result has TripsCount 0 and empty city and zone.
func (s *BaselineService) Compute(ctx context.Context, subjectID string, date time.Time) (domain.BaselineMetrics, error) {
	if strings.TrimSpace(subjectID) == "" {
		return domain.BaselineMetrics{}, fmt.Errorf("service.BaselineService.Compute: driver id is required: %w", domain.ErrValidation)
	}

	start, end := DayRange(date, s.loc)
	trips, err := s.trips.ListBySubject(ctx, subjectID, start, end)
	if err != nil {
		return domain.BaselineMetrics{}, fmt.Errorf("service.BaselineService.Compute: %w", err)
	}
	return ComputeBaseline(trips, start, s.restThreshold), nil
}

// ComputeBaseline folds a start-ordered trip list into baseline metrics.
// Gaps between one trip's end and the next trip's start are truncated to whole
// minutes; non-positive gaps are ignored and gaps of at least restThreshold
// count as rest as well as idle.
func ComputeBaseline(trips []domain.Trip, dayStart time.Time, restThreshold float64) domain.BaselineMetrics {
	if len(trips) == 0 {
		return domain.BaselineMetrics{ShiftStart: dayStart, ShiftEnd: dayStart}
	}

	first, last := trips[0], trips[len(trips)-1]
	b := domain.BaselineMetrics{
		CityID:     first.CityID,
		ShiftStart: first.StartTS,
		ShiftEnd:   last.End(),
		StartZone:  first.PickupZone,
		TripsCount: len(trips),
	}

	for i, t := range trips {
		b.DriveMins += t.Duration()
		b.Earnings += t.Earnings()
		if i == 0 {
			continue
		}
		gap := wholeMinutes(t.StartTS.Sub(trips[i-1].End()))
		if gap <= 0 {
			continue
		}
		b.IdleMins += gap
		if gap >= restThreshold {
			b.RestMins += gap
		}
	}
	return b
}
