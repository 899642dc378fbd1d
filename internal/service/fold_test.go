package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shiftsim/internal/domain"
)

var t0 = time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)

func mins(n int) time.Duration { return time.Duration(n) * time.Minute }

func trip(id, from, to string, start time.Time, duration, fare float64) domain.Trip {
	return domain.Trip{
		ID:           id,
		CityID:       "c1",
		PickupZone:   from,
		DropoffZone:  to,
		StartTS:      start,
		DurationMins: &duration,
		Fare:         &fare,
	}
}

func TestAdvanceIdle_CoalescesIntoOneEvent(t *testing.T) {
	s := newDayState(t0, "A")

	for i := 1; i <= 5; i++ {
		s = fold(s, 30, advanceIdle{to: t0.Add(mins(5 * i))})
	}

	require.Len(t, s.timeline, 1)
	assert.Equal(t, domain.EventIdle, s.timeline[0].Kind)
	assert.InDelta(t, 25, s.timeline[0].Minutes, 1e-9)
	assert.InDelta(t, 25, s.metrics.IdleMins, 1e-9)
	assert.Zero(t, s.metrics.RestMins)

	// Crossing the threshold turns the whole span into rest.
	s = fold(s, 30, advanceIdle{to: t0.Add(mins(30))})

	require.Len(t, s.timeline, 1)
	ev := s.timeline[0]
	assert.Equal(t, domain.EventRest, ev.Kind)
	assert.True(t, ev.Start.Equal(t0))
	assert.True(t, ev.End.Equal(t0.Add(mins(30))))
	assert.InDelta(t, 30, s.metrics.IdleMins, 1e-9)
	assert.InDelta(t, 30, s.metrics.RestMins, 1e-9, "rest is a subset of idle, not added on top")
}

func TestAdvanceIdle_SubMinuteGapMovesClockOnly(t *testing.T) {
	s := fold(newDayState(t0, "A"), 30, advanceIdle{to: t0.Add(40 * time.Second)})

	assert.Empty(t, s.timeline)
	assert.Zero(t, s.metrics.IdleMins)
	assert.True(t, s.now.Equal(t0.Add(40*time.Second)))
}

func TestAdvanceIdle_NeverMovesBackwards(t *testing.T) {
	s := newDayState(t0, "A")

	got := fold(s, 30, advanceIdle{to: t0.Add(-mins(10))})

	assert.Equal(t, s, got)
}

func TestAdvanceIdle_DoesNotMergeAcrossTrips(t *testing.T) {
	s := fold(newDayState(t0, "A"), 30,
		advanceIdle{to: t0.Add(mins(10))},
		takeTrip{trip: trip("r1", "A", "B", t0.Add(mins(10)), 15, 8)},
		advanceIdle{to: t0.Add(mins(60))},
	)

	require.Len(t, s.timeline, 3)
	assert.Equal(t, domain.EventIdle, s.timeline[0].Kind)
	assert.Equal(t, domain.EventTrip, s.timeline[1].Kind)
	assert.Equal(t, domain.EventRest, s.timeline[2].Kind)
	assert.Equal(t, "B", s.timeline[2].FromZone, "idle happens where the last trip dropped off")
	assert.InDelta(t, 45, s.metrics.IdleMins, 1e-9)
	assert.InDelta(t, 35, s.metrics.RestMins, 1e-9)
}

func TestTakeTrip_DoesNotMutateInput(t *testing.T) {
	s := newDayState(t0, "A")

	next := takeTrip{trip: trip("r1", "A", "B", t0, 20, 12.5)}.apply(s, 30)

	assert.Empty(t, s.timeline)
	assert.False(t, s.isConsumed("r1"))
	assert.True(t, next.isConsumed("r1"))
	assert.Equal(t, "B", next.zone)
	assert.True(t, next.now.Equal(t0.Add(mins(20))))
	assert.InDelta(t, 20, next.metrics.DriveMins, 1e-9)
	assert.InDelta(t, 12.5, next.metrics.Earnings, 1e-9)
	assert.Equal(t, 1, next.metrics.TripsCount)
}

// TestRejectTrip_UndoesOvershoot drives 55 minutes, takes a 30 minute trip
// (85 against a 60 +/- 5 target) and rejects it.
func TestRejectTrip_UndoesOvershoot(t *testing.T) {
	before := fold(newDayState(t0, "A"), 30,
		takeTrip{trip: trip("r1", "A", "B", t0, 55, 20)},
	)
	require.InDelta(t, 55, before.metrics.DriveMins, 1e-9)

	over := fold(before, 30, takeTrip{trip: trip("r2", "B", "C", before.now, 30, 11)})
	require.InDelta(t, 85, over.metrics.DriveMins, 1e-9)
	require.Greater(t, over.metrics.DriveMins, 60.0+5)

	after := fold(over, 30, rejectTrip{})

	assert.Equal(t, before, after)
	assert.False(t, after.isConsumed("r2"), "a rejected trip can be offered again")
	for _, ev := range after.timeline {
		assert.NotEqual(t, "r2", ev.TripID)
	}
}

func TestRejectTrip_RestoresPickupZoneAndStart(t *testing.T) {
	// The trip was picked up in a neighbouring zone after a wait.
	s := fold(newDayState(t0, "A"), 30,
		advanceIdle{to: t0.Add(mins(12))},
		takeTrip{trip: trip("r1", "N", "B", t0.Add(mins(12)), 40, 9)},
		rejectTrip{},
	)

	assert.Equal(t, "N", s.zone)
	assert.True(t, s.now.Equal(t0.Add(mins(12))))
	require.Len(t, s.timeline, 1, "the wait before the rejected trip still happened")
	assert.Equal(t, domain.EventIdle, s.timeline[0].Kind)
	assert.Zero(t, s.metrics.TripsCount)
	assert.Zero(t, s.metrics.DriveMins)
	assert.Zero(t, s.metrics.Earnings)
}

func TestRejectTrip_NoTripIsNoop(t *testing.T) {
	s := fold(newDayState(t0, "A"), 30, advanceIdle{to: t0.Add(mins(5))})

	assert.Equal(t, s, fold(s, 30, rejectTrip{}))
	assert.Equal(t, newDayState(t0, "A"), fold(newDayState(t0, "A"), 30, rejectTrip{}))
}

func TestWholeMinutes_Truncates(t *testing.T) {
	assert.InDelta(t, 4, wholeMinutes(4*time.Minute+59*time.Second), 1e-9)
	assert.InDelta(t, 0, wholeMinutes(59*time.Second), 1e-9)
	assert.InDelta(t, -1, wholeMinutes(-90*time.Second), 1e-9)
}
