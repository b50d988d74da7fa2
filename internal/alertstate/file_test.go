package alertstate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"

	"HeikinSentinel/internal/model"
)

var (
	btcHour = model.AlertKey{Symbol: "BTC-USDT", Timeframe: model.OneHour}
	ethFive = model.AlertKey{Symbol: "ETH-USDT", Timeframe: model.FiveMinute}
	firedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestFileStore(t *testing.T, path string) *FileStore {
	t.Helper()
	s := NewFileStore(path, zerolog.Nop())
	assert.NoError(t, s.Load(context.Background()))
	return s
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := newTestFileStore(t, filepath.Join(t.TempDir(), "last_alerted.json"))
	assert.Equal(t, len(s.Snapshot()), 0)
	assert.True(t, s.ShouldFire(btcHour, 0.5))
}

func TestFileStore_EmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_alerted.json")
	assert.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	s := newTestFileStore(t, path)
	assert.Equal(t, len(s.Snapshot()), 0)
}

func TestFileStore_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_alerted.json")
	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, zerolog.Nop())
	err := s.Load(context.Background())
	var ioErr *StoreIOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, ioErr.Op, "load")
	assert.Equal(t, len(s.Snapshot()), 0)
	assert.True(t, s.ShouldFire(btcHour, 0))
}

func TestFileStore_NullFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "last_alerted.json")
	assert.NoError(t, os.WriteFile(path, []byte("null\n"), 0o644))

	s := newTestFileStore(t, path)
	assert.Equal(t, len(s.Snapshot()), 0)
	assert.True(t, s.ShouldFire(btcHour, 0.5))

	assert.NoError(t, s.Record(ctx, btcHour, 0.5, firedAt))
	assert.False(t, s.ShouldFire(btcHour, 0.5))
	assert.False(t, newTestFileStore(t, path).ShouldFire(btcHour, 0.5))
}

func TestFileStore_DedupIdempotence(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, filepath.Join(t.TempDir(), "state.json"))

	assert.True(t, s.ShouldFire(btcHour, 0.5))
	assert.NoError(t, s.Record(ctx, btcHour, 0.5, firedAt))

	// same level again: suppressed
	assert.False(t, s.ShouldFire(btcHour, 0.5))
	// other keys are independent
	assert.True(t, s.ShouldFire(ethFive, 0.5))
	// level change: exactly one new alert, then suppressed again
	assert.True(t, s.ShouldFire(btcHour, 1))
	assert.NoError(t, s.Record(ctx, btcHour, 1, firedAt.Add(time.Hour)))
	assert.False(t, s.ShouldFire(btcHour, 1))
	// going back to the earlier level is a change too
	assert.True(t, s.ShouldFire(btcHour, 0.5))

	snap := s.Snapshot()
	assert.Equal(t, len(snap), 1)
	assert.Equal(t, snap["BTC-USDT_1hour"].Threshold, 1.0)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := newTestFileStore(t, path)
	assert.NoError(t, s.Record(ctx, btcHour, 0, firedAt))
	assert.NoError(t, s.Record(ctx, ethFive, 1, firedAt.Add(time.Minute)))

	reloaded := newTestFileStore(t, path)
	want := map[string]model.AlertRecord{
		"BTC-USDT_1hour": {Threshold: 0, FiredAt: firedAt},
		"ETH-USDT_5min":  {Threshold: 1, FiredAt: firedAt.Add(time.Minute)},
	}
	if diff := cmp.Diff(want, reloaded.Snapshot()); diff != "" {
		t.Errorf("reloaded state mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, reloaded.ShouldFire(btcHour, 0))

	// no temp files left behind
	files, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, len(files), 1)
}

func TestFileStore_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := newTestFileStore(t, path)
	assert.NoError(t, s.Record(context.Background(), btcHour, 0.5, firedAt))

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	want := "{\n  \"BTC-USDT_1hour\": {\n    \"threshold\": 0.5,\n    \"firedAt\": \"2025-03-01T12:00:00Z\"\n  }\n}"
	assert.Equal(t, string(data), want)
}

func TestFileStore_SaveFailureKeepsStateAndFlushes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	assert.NoError(t, os.WriteFile(blocker, nil, 0o644))
	path := filepath.Join(blocker, "state.json")

	// the blocked path is unreadable too, so Load degrades to empty
	s := NewFileStore(path, zerolog.Nop())
	var loadErr *StoreIOError
	assert.True(t, errors.As(s.Load(ctx), &loadErr))
	assert.Equal(t, loadErr.Op, "load")

	err := s.Record(ctx, btcHour, 0.5, firedAt)
	var ioErr *StoreIOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, ioErr.Op, "save")
	// the decision stands in memory even though it was not persisted
	assert.False(t, s.ShouldFire(btcHour, 0.5))
	assert.Error(t, s.Flush(ctx))

	assert.NoError(t, os.Remove(blocker))
	assert.NoError(t, s.Flush(ctx))

	reloaded := newTestFileStore(t, path)
	assert.False(t, reloaded.ShouldFire(btcHour, 0.5))
	// clean store: flush is a no-op
	assert.NoError(t, reloaded.Flush(ctx))
}
