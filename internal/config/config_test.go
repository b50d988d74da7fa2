package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"

	"HeikinSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, cfg.Validate())

	tfs, err := cfg.Timeframes()
	assert.NoError(t, err)
	assert.Equal(t, tfs, []model.Timeframe{model.OneHour, model.ThirtyMinute, model.FifteenMinute, model.FiveMinute})
}

func TestLoad_YAMLThenEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
telegram:
  bot_token: from-yaml
  chat_ids: ["111"]
scan:
  timeframes: [1hour, 4hour]
  interval: 2m
  concurrency: 8
strategy:
  thresholds: [0, 1]
universe:
  symbols: [btc-usdt, " eth-usdt "]
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_CHAT_IDS", "111, 222")
	t.Setenv("SQLITE_PATH", "/tmp/history.db")
	t.Setenv("STATE_BACKEND", "Redis")
	t.Setenv("STATE_REDIS_ADDR", "localhost:6379")
	t.Setenv("STRATEGY_TOLERANCE", "0.05")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Telegram.BotToken, "from-env")
	assert.Equal(t, cfg.Telegram.ChatIDs, []string{"111", "222"})
	assert.Equal(t, cfg.Scan.Timeframes, []string{"1hour", "4hour"})
	assert.Equal(t, cfg.Scan.Interval, 2*time.Minute)
	assert.Equal(t, cfg.Scan.Concurrency, 8)
	assert.Equal(t, cfg.Strategy.Thresholds, []float64{0, 1})
	assert.Equal(t, cfg.Strategy.Tolerance, 0.05)
	assert.Equal(t, cfg.Strategy.BBPeriod, 200)
	assert.Equal(t, cfg.Universe.Symbols, []string{"BTC-USDT", "ETH-USDT"})
	assert.Equal(t, cfg.Database.SQLitePath, "/tmp/history.db")
	assert.Equal(t, cfg.State.Backend, "redis")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METRICS_ADDR=:9100\nLOG_LEVEL=debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("METRICS_ADDR") })

	cfg, err := Load("missing.yaml")
	assert.NoError(t, err)
	assert.Equal(t, cfg.Metrics.Addr, ":9100")
	// the real environment wins over .env
	assert.Equal(t, cfg.Log.Level, "warn")
}

func TestLoad_BadYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(writeConfig(t, "scan: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"token without chats", func(c *Config) { c.Telegram.BotToken = "x" }, false},
		{"chats without token", func(c *Config) { c.Telegram.ChatIDs = []string{"1"} }, false},
		{"unknown source", func(c *Config) { c.Exchange.Source = "binance" }, false},
		{"no timeframes", func(c *Config) { c.Scan.Timeframes = nil }, false},
		{"zero interval", func(c *Config) { c.Scan.Interval = 0 }, false},
		{"no concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, false},
		{"descending thresholds", func(c *Config) { c.Strategy.Thresholds = []float64{1, 0.5} }, false},
		{"negative tolerance", func(c *Config) { c.Strategy.Tolerance = -0.1 }, false},
		{"redis without addr", func(c *Config) { c.State.Backend = "redis" }, false},
		{"bad cron", func(c *Config) { c.Schedule.DigestCron = "every day" }, false},
		{"digest disabled", func(c *Config) { c.Schedule.DigestCron = "" }, true},
		{"static universe", func(c *Config) { c.Universe.Size = 0; c.Universe.Symbols = []string{"BTC-USDT"} }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_BadTimeframeFailsFast(t *testing.T) {
	cfg := Default()
	cfg.Scan.Timeframes = []string{"1hour", "7min"}
	cfg.Scan.Concurrency = 0

	err := cfg.Validate()
	var bad *model.BadIntervalError
	assert.True(t, errors.As(err, &bad))
	assert.Equal(t, bad.Interval, "7min")
	// other problems are reported alongside
	assert.True(t, len(err.Error()) > len(bad.Error()))
}
