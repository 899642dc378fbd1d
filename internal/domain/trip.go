// Package domain contains the core data types for the shift simulator.
// This package has zero external dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

import "time"

// Trip is a single recorded job from the trip log. It is read-only: the core
// never writes trips back.
//
// EndTS, DurationMins and Fare are nil when the source row has no value.
type Trip struct {
	ID           string     `json:"ride_id"`
	SubjectID    string     `json:"driver_id"`
	CityID       string     `json:"city_id"`
	PickupZone   string     `json:"pickup_zone"`
	DropoffZone  string     `json:"dropoff_zone"`
	StartTS      time.Time  `json:"start_ts"`
	EndTS        *time.Time `json:"end_ts,omitempty"`
	DurationMins *float64   `json:"duration_mins,omitempty"`
	Fare         *float64   `json:"fare,omitempty"`
}

// Duration returns the trip duration in minutes, or 0 when unknown.
func (t Trip) Duration() float64 {
	return nz(t.DurationMins)
}

// Earnings returns the net fare, or 0 when unknown.
func (t Trip) Earnings() float64 {
	return nz(t.Fare)
}

// End returns the trip's end timestamp. Rows without one are treated as
// ending Duration() minutes after the start.
func (t Trip) End() time.Time {
	if t.EndTS != nil {
		return *t.EndTS
	}
	return t.StartTS.Add(time.Duration(t.Duration() * float64(time.Minute)))
}

func nz(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
