package model

import "time"

// AlertRecord is the last threshold level an alert fired at for a key.
// FiredAt is informational and never part of the dedup decision.
type AlertRecord struct {
	Threshold float64   `json:"threshold"`
	FiredAt   time.Time `json:"firedAt"`
}

// CycleStats summarises one pass of the scan loop over every pair.
type CycleStats struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Pairs      int
	Alerts     int
	Suppressed int
	Failed     int
}

// Duration is the wall time the cycle took.
func (c CycleStats) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// AlertSummary aggregates alert history since a point in time.
type AlertSummary struct {
	Since       time.Time
	Total       int
	ByDirection map[Direction]int
	ByThreshold map[string]int // keyed by the threshold formatted with one decimal
	Cycles      int
	LastCycle   *CycleStats
}
