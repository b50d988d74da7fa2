package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"HeikinSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Universe UniverseConfig `yaml:"universe"`
	Scan     ScanConfig     `yaml:"scan"`
	Strategy StrategyConfig `yaml:"strategy"`
	State    StateConfig    `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron" split_words:"true"`
	} `yaml:"schedule"`
	Metrics struct {
		Addr string `yaml:"addr" split_words:"true"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level" split_words:"true"`
		File  string `yaml:"file" split_words:"true"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

type TelegramConfig struct {
	BotToken string   `yaml:"bot_token" split_words:"true"`
	ChatIDs  []string `yaml:"chat_ids" envconfig:"CHAT_IDS"`
	BaseURL  string   `yaml:"base_url" split_words:"true"`
	Retries  int      `yaml:"retries" split_words:"true"`
}

// Enabled reports whether alerts go to Telegram rather than the log.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" }

type ExchangeConfig struct {
	Source  string `yaml:"source" split_words:"true"` // kucoin or mock
	BaseURL string `yaml:"base_url" split_words:"true"`
}

type UniverseConfig struct {
	BaseURL string   `yaml:"base_url" split_words:"true"`
	Size    int      `yaml:"size" split_words:"true"`
	Symbols []string `yaml:"symbols" split_words:"true"` // overrides the ranking when set
}

type ScanConfig struct {
	Timeframes   []string      `yaml:"timeframes" split_words:"true"`
	Interval     time.Duration `yaml:"interval" split_words:"true"`
	Concurrency  int           `yaml:"concurrency" split_words:"true"`
	FetchRetries int           `yaml:"fetch_retries" split_words:"true"`
	Margin       int           `yaml:"margin" split_words:"true"`
}

type StrategyConfig struct {
	EMAPeriod  int       `yaml:"ema_period" split_words:"true"`
	BBPeriod   int       `yaml:"bb_period" split_words:"true"`
	Thresholds []float64 `yaml:"thresholds" split_words:"true"`
	Tolerance  float64   `yaml:"tolerance" split_words:"true"`
}

type StateConfig struct {
	Backend       string `yaml:"backend" split_words:"true"` // file or redis
	File          string `yaml:"file" split_words:"true"`
	RedisAddr     string `yaml:"redis_addr" split_words:"true"`
	RedisPassword string `yaml:"redis_password" split_words:"true"`
	RedisDB       int    `yaml:"redis_db" split_words:"true"`
	RedisKey      string `yaml:"redis_key" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Telegram.Retries = 3
	cfg.Exchange.Source = "kucoin"
	cfg.Universe.Size = 100
	cfg.Scan.Timeframes = []string{"1hour", "30min", "15min", "5min"}
	cfg.Scan.Interval = 60 * time.Second
	cfg.Scan.Concurrency = 4
	cfg.Scan.FetchRetries = 2
	cfg.Scan.Margin = 50
	cfg.Strategy.EMAPeriod = 20
	cfg.Strategy.BBPeriod = 200
	cfg.Strategy.Thresholds = []float64{0, 0.5, 1}
	cfg.Strategy.Tolerance = 0.02
	cfg.State.Backend = "file"
	cfg.State.File = "data/last_alerted.json"
	cfg.State.RedisKey = "heikinsentinel:alerts"
	cfg.Database.SQLitePath = "data/heikin_sentinel.db"
	cfg.Schedule.DigestCron = "0 0 8 * * *"
	cfg.Log.Level = "info"
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (optional), a .env
// file in the working directory (optional) and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Telegram.ChatIDs = trimAll(c.Telegram.ChatIDs)
	c.Universe.Symbols = trimAll(c.Universe.Symbols)
	for i, s := range c.Universe.Symbols {
		c.Universe.Symbols[i] = strings.ToUpper(s)
	}
	c.Scan.Timeframes = trimAll(c.Scan.Timeframes)
	c.Exchange.Source = strings.ToLower(strings.TrimSpace(c.Exchange.Source))
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Timeframes parses the configured scan timeframes.
func (c *Config) Timeframes() ([]model.Timeframe, error) {
	tfs := make([]model.Timeframe, 0, len(c.Scan.Timeframes))
	for _, s := range c.Scan.Timeframes {
		tf, err := model.ParseTimeframe(s)
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) == 0 {
		add("telegram.chat_ids is required when telegram.bot_token is set")
	}
	if c.Telegram.BotToken == "" && len(c.Telegram.ChatIDs) > 0 {
		add("telegram.bot_token is required when telegram.chat_ids is set")
	}
	if c.Telegram.Retries < 0 {
		add("telegram.retries must not be negative")
	}

	switch c.Exchange.Source {
	case "kucoin", "mock":
	default:
		add("exchange.source must be kucoin or mock, got %q", c.Exchange.Source)
	}
	if len(c.Universe.Symbols) == 0 && c.Universe.Size <= 0 {
		add("universe.size must be positive when universe.symbols is empty")
	}

	if len(c.Scan.Timeframes) == 0 {
		add("scan.timeframes must not be empty")
	}
	if _, err := c.Timeframes(); err != nil {
		errs = append(errs, fmt.Errorf("scan.timeframes: %w", err))
	}
	if c.Scan.Interval <= 0 {
		add("scan.interval must be positive")
	}
	if c.Scan.Concurrency < 1 {
		add("scan.concurrency must be at least 1")
	}
	if c.Scan.FetchRetries < 0 {
		add("scan.fetch_retries must not be negative")
	}
	if c.Scan.Margin < 0 {
		add("scan.margin must not be negative")
	}

	if c.Strategy.EMAPeriod <= 0 {
		add("strategy.ema_period must be positive")
	}
	if c.Strategy.BBPeriod <= 0 {
		add("strategy.bb_period must be positive")
	}
	if len(c.Strategy.Thresholds) == 0 {
		add("strategy.thresholds must not be empty")
	}
	for i := 1; i < len(c.Strategy.Thresholds); i++ {
		if c.Strategy.Thresholds[i] <= c.Strategy.Thresholds[i-1] {
			add("strategy.thresholds must be strictly ascending")
			break
		}
	}
	if c.Strategy.Tolerance < 0 {
		add("strategy.tolerance must not be negative")
	}

	switch c.State.Backend {
	case "file":
		if c.State.File == "" {
			add("state.file is required for the file backend")
		}
	case "redis":
		if c.State.RedisAddr == "" {
			add("state.redis_addr is required for the redis backend")
		}
	default:
		add("state.backend must be file or redis, got %q", c.State.Backend)
	}

	if c.Schedule.DigestCron != "" {
		if _, err := cronParser.Parse(c.Schedule.DigestCron); err != nil {
			add("schedule.digest_cron: %v", err)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	return errors.Join(errs...)
}
