package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"

	"HeikinSentinel/internal/fixture"
	"HeikinSentinel/internal/model"
	"HeikinSentinel/internal/notifier"
	"HeikinSentinel/internal/recorder"
)

func newTestScheduler(t *testing.T, h *harness, rec recorder.Recorder) *Scheduler {
	t.Helper()
	s := NewScheduler(context.Background(), h.loop, h.store, h.notifier, rec, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s
}

func TestScheduler_RegisterAll(t *testing.T) {
	h := newHarness(t, []string{"BTC-USDT"}, "")
	s := newTestScheduler(t, h, nil)
	assert.NoError(t, s.RegisterAll("0 0 8 * * *"))
	assert.Equal(t, len(s.Cron.Entries()), 2)

	s = newTestScheduler(t, h, nil)
	assert.NoError(t, s.RegisterAll(""))
	assert.Equal(t, len(s.Cron.Entries()), 1)

	s = newTestScheduler(t, h, nil)
	assert.Error(t, s.RegisterAll("not a schedule"))
}

func TestScheduler_HandleCommand(t *testing.T) {
	h := newHarness(t, []string{"BTC-USDT", "ETH-USDT"}, "")
	h.source.SetCandles(hourKey("BTC-USDT"), fixture.Bullish(model.OneHour, fixture.Base))
	h.source.SetCandles(hourKey("ETH-USDT"), fixture.Flat(300, model.OneHour, 50))
	s := newTestScheduler(t, h, nil)

	status := s.HandleCommand("/status")
	assert.True(t, strings.Contains(status, "Pairs: 2 (1hour)"))
	assert.True(t, strings.Contains(status, "No cycle completed yet"))
	assert.Equal(t, s.HandleCommand("/alerts"), "No alerts recorded yet")

	h.loop.RunCycle(context.Background())

	status = s.HandleCommand("/status@HeikinBot")
	assert.True(t, strings.Contains(status, "Tracked alert levels: 1"))
	assert.True(t, strings.Contains(status, "pairs 2 | alerts 1 | suppressed 0 | failed 0"))
	assert.True(t, strings.Contains(s.HandleCommand("/alerts"), "`BTC-USDT_1hour` ~0.5"))

	assert.Equal(t, s.HandleCommand("/help"), notifier.HelpText)
	assert.Equal(t, s.HandleCommand("hello"), notifier.HelpText)
	assert.Equal(t, s.HandleCommand("   "), notifier.HelpText)
}

func TestScheduler_DigestFromHistory(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	assert.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	h := newHarness(t, []string{"BTC-USDT"}, "")
	h.loop.cfg.Recorder = rec
	h.source.SetCandles(hourKey("BTC-USDT"), fixture.Bullish(model.OneHour, fixture.Base))
	h.loop.RunCycle(context.Background())
	h.loop.RunCycle(context.Background())

	s := newTestScheduler(t, h, rec)
	digest := s.HandleCommand("/digest")
	assert.True(t, strings.Contains(digest, "Alerts since 2025-05-31 12:00: 1"))
	assert.True(t, strings.Contains(digest, "✅ bullish: 1 | ❌ bearish: 0"))
	assert.True(t, strings.Contains(digest, "BB% ~0.5: 1"))
	assert.True(t, strings.Contains(digest, "Scan cycles: 2"))

	s.SendDigest()
	sent := h.notifier.sent()
	assert.Equal(t, sent[len(sent)-1], digest)
}
