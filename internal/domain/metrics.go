package domain

import (
	"math"
	"time"
)

// BaselineMetrics is the observed day derived from a subject's trip log.
//
// A zero TripsCount means the subject recorded nothing that day; CityID and
// StartZone are then empty and ShiftStart == ShiftEnd == local midnight.
type BaselineMetrics struct {
	DriveMins  float64   `json:"drive_mins"`
	Earnings   float64   `json:"earnings"`
	IdleMins   float64   `json:"idle_mins"`
	RestMins   float64   `json:"rest_mins"`
	CityID     string    `json:"city_id,omitempty"`
	ShiftStart time.Time `json:"shift_start"`
	ShiftEnd   time.Time `json:"shift_end"`
	StartZone  string    `json:"start_zone,omitempty"`
	TripsCount int       `json:"trips_count"`
}

// Empty reports whether there is no baseline to extend.
func (b BaselineMetrics) Empty() bool {
	return b.CityID == "" || b.StartZone == "" || b.DriveMins <= 0
}

// SimMetrics are the simulated day's totals.
type SimMetrics struct {
	DriveMins  float64 `json:"drive_mins"`
	Earnings   float64 `json:"earnings"`
	IdleMins   float64 `json:"idle_mins"`
	RestMins   float64 `json:"rest_mins"`
	TripsCount int     `json:"trips_count"`
}

// Delta is a change between baseline and simulation. Pct is nil when the
// baseline value is zero.
type Delta struct {
	Delta float64  `json:"delta"`
	Pct   *float64 `json:"pct"`
}

// Improvements compares a simulated day against its baseline.
type Improvements struct {
	Earnings  Delta `json:"earnings"`
	DriveMins Delta `json:"drive_mins"`
	IdleMins  Delta `json:"idle_mins"`
	RestMins  Delta `json:"rest_mins"`
	Trips     Delta `json:"trips"`
}

// Compare computes simulated minus baseline for every metric.
func Compare(b BaselineMetrics, s SimMetrics) Improvements {
	return Improvements{
		Earnings:  newDelta(s.Earnings, b.Earnings),
		DriveMins: newDelta(s.DriveMins, b.DriveMins),
		IdleMins:  newDelta(s.IdleMins, b.IdleMins),
		RestMins:  newDelta(s.RestMins, b.RestMins),
		Trips:     newDelta(float64(s.TripsCount), float64(b.TripsCount)),
	}
}

func newDelta(sim, base float64) Delta {
	d := Delta{Delta: sim - base}
	if math.Abs(base) >= 1e-9 {
		p := d.Delta / base * 100
		d.Pct = &p
	}
	return d
}
