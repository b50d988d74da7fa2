package recorder

import (
	"time"

	"HeikinSentinel/internal/model"
)

// AlertEvent is one alert decision: the detection that passed dedup and how delivery went.
type AlertEvent struct {
	ID        string // generated when empty
	Detection model.Detection
	FiredAt   time.Time
	Delivered bool
	NotifyErr string
}

// Recorder persists alert and scan history for later inspection. It is never consulted
// for deduplication.
type Recorder interface {
	RecordAlert(evt *AlertEvent) error
	RecordCycle(stats *model.CycleStats) error
	Summary(since time.Time) (*model.AlertSummary, error)
	Close() error
}
