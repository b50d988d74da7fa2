package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"HeikinSentinel/internal/calculator"
	"HeikinSentinel/internal/model"
)

// DefaultMargin is the number of candles fetched beyond the longest indicator window.
const DefaultMargin = 50

// Config configures a Collector.
type Config struct {
	Source  CandleSource
	Params  calculator.Params
	Margin  int
	Retries int           // extra attempts after a retryable FetchError
	Backoff time.Duration // first retry delay, doubled per attempt
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Collector fetches a pair's candles and computes the augmented series.
type Collector struct {
	source  CandleSource
	params  calculator.Params
	margin  int
	retries int
	backoff time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// Analysis is the augmented series of one pair.
type Analysis struct {
	Series model.Series
	Rows   []model.IndicatorRow
}

// NewCollector creates a Collector.
func NewCollector(cfg Config) *Collector {
	c := &Collector{
		source:  cfg.Source,
		params:  cfg.Params,
		margin:  cfg.Margin,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		logger:  cfg.Logger.With().Str("component", "collector").Logger(),
		now:     cfg.Now,
	}
	if c.margin < 0 {
		c.margin = DefaultMargin
	}
	if c.backoff <= 0 {
		c.backoff = 500 * time.Millisecond
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Params returns the indicator parameters in use.
func (c *Collector) Params() calculator.Params { return c.params }

// RequiredCandles is the longest indicator window plus the safety margin.
func (c *Collector) RequiredCandles() int {
	return c.params.Lookback() + c.margin
}

// Window returns the fetch range ending at end. The range is a whole number of days long,
// sized to hold RequiredCandles candles of tf.
func (c *Collector) Window(tf model.Timeframe, end time.Time) (time.Time, time.Time) {
	days := int64(c.RequiredCandles())*tf.Seconds()/86400 + 1
	return end.Add(-time.Duration(days) * 24 * time.Hour), end
}

// Fetch pulls the candles of one pair, retrying retryable failures with backoff.
func (c *Collector) Fetch(ctx context.Context, key model.AlertKey) (model.Series, error) {
	if err := key.Timeframe.Validate(); err != nil {
		return model.Series{}, err
	}
	start, end := c.Window(key.Timeframe, c.now())

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt-1)))
			c.logger.Debug().
				Str("symbol", key.Symbol).
				Str("timeframe", key.Timeframe.String()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying fetch")
			select {
			case <-ctx.Done():
				return model.Series{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		candles, err := c.source.Fetch(ctx, key.Symbol, key.Timeframe, start, end)
		if err == nil {
			return model.Series{
				Symbol:    key.Symbol,
				Timeframe: key.Timeframe,
				Candles:   candles,
				FetchedAt: end,
			}, nil
		}
		lastErr = err

		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || ctx.Err() != nil {
			break
		}
	}
	return model.Series{}, lastErr
}

// Analyze fetches a pair and runs the Heikin-Ashi and indicator pipeline over it.
func (c *Collector) Analyze(ctx context.Context, key model.AlertKey) (*Analysis, error) {
	series, err := c.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(series.Candles) < 2 {
		return nil, fmt.Errorf("%s: %w", key, &calculator.InsufficientDataError{Have: len(series.Candles), Need: 2})
	}
	return &Analysis{
		Series: series,
		Rows:   calculator.Pipeline(series.Candles, c.params),
	}, nil
}
