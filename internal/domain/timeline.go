package domain

import "time"

// EventKind tags a timeline entry.
type EventKind string

const (
	EventTrip EventKind = "trip"
	EventIdle EventKind = "idle"
	EventRest EventKind = "rest"
)

// TimelineEvent is one entry of a simulated day. TripID and Earnings are only
// set for trip events. Minutes is the trip duration for trip events and the
// whole-minute gap for idle and rest events.
type TimelineEvent struct {
	Kind     EventKind `json:"type"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	FromZone string    `json:"from_zone"`
	ToZone   string    `json:"to_zone"`
	TripID   string    `json:"ride_id,omitempty"`
	Earnings *float64  `json:"earnings,omitempty"`
	Minutes  float64   `json:"minutes"`
}

// SimulationResult is everything one simulateDay call produces.
// Notes are human-readable diagnostics and are never parsed.
type SimulationResult struct {
	RunID     string          `json:"run_id"`
	Baseline  BaselineMetrics `json:"baseline"`
	Simulated SimMetrics      `json:"simulated"`
	Timeline  []TimelineEvent `json:"timeline"`
	Notes     []string        `json:"notes"`
}
