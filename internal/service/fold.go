package service

import (
	"maps"
	"slices"
	"time"

	"github.com/pkordes/shiftsim/internal/domain"
)

// dayState is the simulator's accumulator. Steps never mutate a dayState;
// they return a new one, so undoing a step is just applying its inverse.
type dayState struct {
	now      time.Time
	zone     string
	metrics  domain.SimMetrics
	timeline []domain.TimelineEvent
	consumed map[string]struct{}
}

func newDayState(start time.Time, zone string) dayState {
	return dayState{
		now:      start,
		zone:     zone,
		timeline: []domain.TimelineEvent{},
		consumed: map[string]struct{}{},
	}
}

func (s dayState) clone() dayState {
	s.timeline = slices.Clone(s.timeline)
	s.consumed = maps.Clone(s.consumed)
	return s
}

func (s dayState) isConsumed(tripID string) bool {
	_, ok := s.consumed[tripID]
	return ok
}

// step is one decision of the simulator.
type step interface {
	apply(s dayState, restThreshold float64) dayState
}

// fold applies steps in order.
func fold(s dayState, restThreshold float64, steps ...step) dayState {
	for _, st := range steps {
		s = st.apply(s, restThreshold)
	}
	return s
}

// advanceIdle moves the clock to `to` without driving. The elapsed whole
// minutes become an idle event, or a rest event once the contiguous idle span
// reaches the rest threshold. A gap that starts where the previous idle or
// rest event ended extends that event instead of adding another.
type advanceIdle struct {
	to time.Time
}

func (a advanceIdle) apply(s dayState, restThreshold float64) dayState {
	if !a.to.After(s.now) {
		return s
	}
	s = s.clone()

	if n := len(s.timeline); n > 0 && isIdle(s.timeline[n-1]) && s.timeline[n-1].End.Equal(s.now) {
		last := s.timeline[n-1]
		s.metrics = unaccountIdle(s.metrics, last)
		last.End = a.to
		last.Minutes = wholeMinutes(a.to.Sub(last.Start))
		last.Kind = idleKind(last.Minutes, restThreshold)
		s.metrics = accountIdle(s.metrics, last)
		s.timeline[n-1] = last
		s.now = a.to
		return s
	}

	if gap := wholeMinutes(a.to.Sub(s.now)); gap > 0 {
		ev := domain.TimelineEvent{
			Kind:     idleKind(gap, restThreshold),
			Start:    s.now,
			End:      a.to,
			FromZone: s.zone,
			ToZone:   s.zone,
			Minutes:  gap,
		}
		s.metrics = accountIdle(s.metrics, ev)
		s.timeline = append(s.timeline, ev)
	}
	s.now = a.to
	return s
}

// takeTrip drives trip: totals grow, the clock jumps to the trip's end and the
// subject moves to its dropoff zone.
type takeTrip struct {
	trip domain.Trip
}

func (t takeTrip) apply(s dayState, _ float64) dayState {
	s = s.clone()
	d, e := t.trip.Duration(), t.trip.Earnings()

	s.metrics.DriveMins += d
	s.metrics.Earnings += e
	s.metrics.TripsCount++
	s.timeline = append(s.timeline, domain.TimelineEvent{
		Kind:     domain.EventTrip,
		Start:    t.trip.StartTS,
		End:      t.trip.End(),
		FromZone: t.trip.PickupZone,
		ToZone:   t.trip.DropoffZone,
		TripID:   t.trip.ID,
		Earnings: &e,
		Minutes:  d,
	})
	s.now = t.trip.End()
	s.zone = t.trip.DropoffZone
	s.consumed[t.trip.ID] = struct{}{}
	return s
}

// rejectTrip undoes the most recent takeTrip. The clock and zone return to
// the trip's start and pickup zone and the trip may be offered again. It is a
// no-op when the timeline does not end with a trip.
type rejectTrip struct{}

func (rejectTrip) apply(s dayState, _ float64) dayState {
	n := len(s.timeline)
	if n == 0 || s.timeline[n-1].Kind != domain.EventTrip {
		return s
	}
	s = s.clone()
	last := s.timeline[n-1]
	s.timeline = s.timeline[:n-1]

	s.metrics.DriveMins -= last.Minutes
	if last.Earnings != nil {
		s.metrics.Earnings -= *last.Earnings
	}
	s.metrics.TripsCount--
	s.now = last.Start
	s.zone = last.FromZone
	delete(s.consumed, last.TripID)
	return s
}

func isIdle(ev domain.TimelineEvent) bool {
	return ev.Kind == domain.EventIdle || ev.Kind == domain.EventRest
}

func idleKind(minutes, restThreshold float64) domain.EventKind {
	if minutes >= restThreshold {
		return domain.EventRest
	}
	return domain.EventIdle
}

func accountIdle(m domain.SimMetrics, ev domain.TimelineEvent) domain.SimMetrics {
	m.IdleMins += ev.Minutes
	if ev.Kind == domain.EventRest {
		m.RestMins += ev.Minutes
	}
	return m
}

func unaccountIdle(m domain.SimMetrics, ev domain.TimelineEvent) domain.SimMetrics {
	m.IdleMins -= ev.Minutes
	if ev.Kind == domain.EventRest {
		m.RestMins -= ev.Minutes
	}
	return m
}

// wholeMinutes truncates d to whole minutes.
func wholeMinutes(d time.Duration) float64 {
	return float64(d / time.Minute)
}
