package recorder

import (
	"time"

	"HeikinSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

var _ Recorder = (*NoopRecorder)(nil)

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAlert(_ *AlertEvent) error       { return nil }
func (n *NoopRecorder) RecordCycle(_ *model.CycleStats) error { return nil }
func (n *NoopRecorder) Close() error                          { return nil }

func (n *NoopRecorder) Summary(since time.Time) (*model.AlertSummary, error) {
	return &model.AlertSummary{
		Since:       since,
		ByDirection: map[model.Direction]int{},
		ByThreshold: map[string]int{},
	}, nil
}
