package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shiftsim/internal/domain"
	"github.com/pkordes/shiftsim/internal/metrics"
	"github.com/pkordes/shiftsim/internal/repo"
)

const (
	// idleStep is how far the clock moves when nothing can be taken.
	idleStep = 5 * time.Minute
	// bailMargin bounds the simulated day past the baseline shift end.
	bailMargin = 2 * time.Hour
)

// Diagnostic notes attached to a SimulationResult.
const (
	NoteNoBaseline        = "No baseline trips."
	NoteBailed            = "Bailed: time moved beyond shiftEnd + 2h."
	NoteRejectedOvershoot = "Rejected last trip (overshoot beyond tolerance)."
	NoteScoresUnavailable = "Scores unavailable; fell back to earliest candidate."
)

// Run outcomes, as reported to the simulation_runs_total metric.
const (
	outcomeCompleted  = "completed"
	outcomeBailed     = "bailed"
	outcomeNoBaseline = "no_baseline"
)

const (
	defaultLookaheadMins = 30
	defaultToleranceMins = 5
	defaultRingK         = 2
)

// BaselineComputer produces the observed day a simulation tries to match.
type BaselineComputer interface {
	Compute(ctx context.Context, subjectID string, date time.Time) (domain.BaselineMetrics, error)
}

// Scorer rates a trip offer. ok is false when no score is available.
type Scorer interface {
	Score(ctx context.Context, tripID string) (score float64, ok bool)
}

// HexRinger returns a zone followed by its neighbours within k rings.
type HexRinger interface {
	Ring(zone string, k int) []string
}

// SimulationDefaults are used for any parameter a caller leaves unset.
type SimulationDefaults struct {
	RestThresholdMinutes float64
	LookaheadMinutes     int
	ToleranceMinutes     int
	RingK                int
}

// SimulationParams are the per-call overrides. Nil fields use the defaults.
type SimulationParams struct {
	ToleranceMinutes *int
	LookaheadMinutes *int
	RingK            *int
}

// SimulationService builds a counterfactual day by greedily chaining the
// best-scored nearby trip offers until the baseline drive time is matched.
type SimulationService struct {
	baseline BaselineComputer
	trips    repo.TripLog
	hex      HexRinger
	scorer   Scorer
	defaults SimulationDefaults
	logger   *slog.Logger
}

// NewSimulationService wires a SimulationService. Unset defaults fall back to
// a 30 minute rest threshold, 30 minute lookahead, 5 minute tolerance and a
// ring radius of 2.
func NewSimulationService(baseline BaselineComputer, trips repo.TripLog, hex HexRinger, scorer Scorer, defaults SimulationDefaults, logger *slog.Logger) *SimulationService {
	if defaults.RestThresholdMinutes <= 0 {
		defaults.RestThresholdMinutes = DefaultRestThresholdMinutes
	}
	if defaults.LookaheadMinutes <= 0 {
		defaults.LookaheadMinutes = defaultLookaheadMins
	}
	if defaults.ToleranceMinutes < 0 {
		defaults.ToleranceMinutes = defaultToleranceMins
	}
	if defaults.RingK < 0 {
		defaults.RingK = defaultRingK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationService{
		baseline: baseline,
		trips:    trips,
		hex:      hex,
		scorer:   scorer,
		defaults: defaults,
		logger:   logger,
	}
}

// Defaults returns the effective defaults.
func (s *SimulationService) Defaults() SimulationDefaults {
	return s.defaults
}

// settings are the sanitised parameters of one run.
type settings struct {
	tolerance float64
	lookahead time.Duration
	ringK     int
}

// resolve applies defaults and clamps. The tolerance may not reach the target,
// otherwise the day would be "done" before any trip is taken.
func (s *SimulationService) resolve(p SimulationParams, target float64) (settings, []string) {
	var notes []string

	requested := s.defaults.ToleranceMinutes
	if p.ToleranceMinutes != nil {
		requested = *p.ToleranceMinutes
	}
	tolMax := max(0, int(math.Floor(target-1)))
	tol := min(max(0, requested), tolMax)
	if tol != requested {
		notes = append(notes, fmt.Sprintf("Tolerance clamped from %d to %d (baseline drive %s min).",
			requested, tol, strconv.FormatFloat(target, 'f', -1, 64)))
	}

	lookahead := s.defaults.LookaheadMinutes
	if p.LookaheadMinutes != nil {
		if *p.LookaheadMinutes > 0 {
			lookahead = *p.LookaheadMinutes
		} else {
			notes = append(notes, fmt.Sprintf("Lookahead %d min is not positive; using %d.", *p.LookaheadMinutes, lookahead))
		}
	}

	k := s.defaults.RingK
	if p.RingK != nil {
		k = *p.RingK
		if k < 0 {
			notes = append(notes, fmt.Sprintf("Ring radius %d is negative; using 0.", k))
			k = 0
		}
	}

	return settings{
		tolerance: float64(tol),
		lookahead: time.Duration(lookahead) * time.Minute,
		ringK:     k,
	}, notes
}

// SimulateDay computes the baseline for subjectID on date and then builds the
// simulated day. Sparse data never fails a run; it shows up in the notes and
// the metrics. Errors are returned only when the trip log cannot be read.
func (s *SimulationService) SimulateDay(ctx context.Context, subjectID string, date time.Time, p SimulationParams) (domain.SimulationResult, error) {
	started := time.Now()

	base, err := s.baseline.Compute(ctx, subjectID, date)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("service.SimulationService.SimulateDay: %w", err)
	}

	res := domain.SimulationResult{
		RunID:    uuid.NewString(),
		Baseline: base,
		Timeline: []domain.TimelineEvent{},
		Notes:    []string{},
	}
	logger := s.logger.With("run_id", res.RunID, "driver_id", subjectID, "date", date.Format(time.DateOnly))

	if base.Empty() {
		res.Notes = append(res.Notes, NoteNoBaseline)
		s.finish(ctx, logger, res, outcomeNoBaseline, started)
		return res, nil
	}

	cfg, notes := s.resolve(p, base.DriveMins)
	res.Notes = append(res.Notes, notes...)

	state, runNotes, outcome, err := s.run(ctx, logger, base, cfg)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("service.SimulationService.SimulateDay: %w", err)
	}

	res.Simulated = state.metrics
	res.Timeline = state.timeline
	res.Notes = append(res.Notes, runNotes...)
	s.finish(ctx, logger, res, outcome, started)
	return res, nil
}

// run is the greedy loop. Each iteration turns into steps folded onto the
// day state until drive minutes reach target - tolerance.
func (s *SimulationService) run(ctx context.Context, logger *slog.Logger, base domain.BaselineMetrics, cfg settings) (dayState, []string, string, error) {
	var (
		notes     []string
		target    = base.DriveMins
		rest      = s.defaults.RestThresholdMinutes
		bailAt    = base.ShiftEnd.Add(bailMargin)
		state     = newDayState(base.ShiftStart, base.StartZone)
		noteScore bool
	)

	// idle advances by idleStep unless that would pass the bail-out bound.
	idle := func(st dayState) (dayState, bool) {
		next := st.now.Add(idleStep)
		if next.After(bailAt) {
			return st, false
		}
		return fold(st, rest, advanceIdle{to: next}), true
	}

	for state.metrics.DriveMins < target-cfg.tolerance {
		if err := ctx.Err(); err != nil {
			return dayState{}, nil, "", err
		}

		zones := s.hex.Ring(state.zone, cfg.ringK)
		offers, err := s.trips.ListInWindow(ctx, base.CityID, state.now, state.now.Add(cfg.lookahead), zones)
		if err != nil {
			return dayState{}, nil, "", err
		}
		candidates := offers[:0:0]
		for _, t := range offers {
			if !state.isConsumed(t.ID) {
				candidates = append(candidates, t)
			}
		}

		if len(candidates) == 0 {
			var ok bool
			if state, ok = idle(state); !ok {
				notes = append(notes, NoteBailed)
				return state, notes, outcomeBailed, nil
			}
			continue
		}

		best, scored := s.pick(ctx, candidates)
		if !scored && !noteScore {
			notes = append(notes, NoteScoresUnavailable)
			noteScore = true
		}
		logger.DebugContext(ctx, "candidate chosen",
			"at", state.now, "zones", len(zones), "candidates", len(candidates),
			"trip_id", best.ID, "scored", scored)

		state = fold(state, rest, advanceIdle{to: best.StartTS}, takeTrip{trip: best})

		if state.metrics.DriveMins > target+cfg.tolerance {
			state = fold(state, rest, rejectTrip{})
			notes = append(notes, NoteRejectedOvershoot)
			metrics.SimulationOvershoots.Inc()
			logger.DebugContext(ctx, "trip rejected for overshoot", "trip_id", best.ID, "duration_mins", best.Duration())

			var ok bool
			if state, ok = idle(state); !ok {
				notes = append(notes, NoteBailed)
				return state, notes, outcomeBailed, nil
			}
		}
	}
	return state, notes, outcomeCompleted, nil
}

// pick returns the highest-scored candidate. On equal scores the earlier
// candidate wins. scored is false when no candidate had a score, in which case
// the first (earliest) candidate is returned.
func (s *SimulationService) pick(ctx context.Context, candidates []domain.Trip) (domain.Trip, bool) {
	best := candidates[0]
	bestScore := math.Inf(-1)
	scored := false
	for _, t := range candidates {
		sc, ok := s.scorer.Score(ctx, t.ID)
		if !ok || math.IsNaN(sc) || math.IsInf(sc, 0) {
			continue
		}
		if sc > bestScore {
			best, bestScore, scored = t, sc, true
		}
	}
	return best, scored
}

func (s *SimulationService) finish(ctx context.Context, logger *slog.Logger, res domain.SimulationResult, outcome string, started time.Time) {
	metrics.SimulationRuns.WithLabelValues(outcome).Inc()
	metrics.SimulationDuration.Observe(time.Since(started).Seconds())
	logger.InfoContext(ctx, "simulation finished",
		"outcome", outcome,
		"trips", res.Simulated.TripsCount,
		"drive_mins", res.Simulated.DriveMins,
		"target_drive_mins", res.Baseline.DriveMins,
		"notes", len(res.Notes),
		"duration_ms", time.Since(started).Milliseconds(),
	)
}
