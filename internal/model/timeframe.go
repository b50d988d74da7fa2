package model

import (
	"fmt"
	"sort"
	"time"
)

// Timeframe is an exchange candle granularity identifier such as "1hour".
type Timeframe string

const (
	OneMinute     Timeframe = "1min"
	ThreeMinute   Timeframe = "3min"
	FiveMinute    Timeframe = "5min"
	FifteenMinute Timeframe = "15min"
	ThirtyMinute  Timeframe = "30min"
	OneHour       Timeframe = "1hour"
	TwoHour       Timeframe = "2hour"
	FourHour      Timeframe = "4hour"
	SixHour       Timeframe = "6hour"
	EightHour     Timeframe = "8hour"
	TwelveHour    Timeframe = "12hour"
	OneDay        Timeframe = "1day"
	OneWeek       Timeframe = "1week"
)

var timeframeSeconds = map[Timeframe]int64{
	OneMinute:     60,
	ThreeMinute:   180,
	FiveMinute:    300,
	FifteenMinute: 900,
	ThirtyMinute:  1800,
	OneHour:       3600,
	TwoHour:       7200,
	FourHour:      14400,
	SixHour:       21600,
	EightHour:     28800,
	TwelveHour:    43200,
	OneDay:        86400,
	OneWeek:       604800,
}

// BadIntervalError reports an unsupported timeframe identifier.
type BadIntervalError struct {
	Interval string
}

func (e *BadIntervalError) Error() string {
	return fmt.Sprintf("unsupported interval %q (supported: %v)", e.Interval, SupportedTimeframes())
}

// ParseTimeframe validates s against the supported granularities.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeSeconds[tf]; !ok {
		return "", &BadIntervalError{Interval: s}
	}
	return tf, nil
}

// Validate returns a BadIntervalError when t is not a supported granularity.
func (t Timeframe) Validate() error {
	if _, ok := timeframeSeconds[t]; !ok {
		return &BadIntervalError{Interval: string(t)}
	}
	return nil
}

// Seconds returns the candle length in seconds, or 0 for an unsupported timeframe.
func (t Timeframe) Seconds() int64 {
	return timeframeSeconds[t]
}

// Duration returns the candle length.
func (t Timeframe) Duration() time.Duration {
	return time.Duration(t.Seconds()) * time.Second
}

func (t Timeframe) String() string { return string(t) }

// SupportedTimeframes lists the known identifiers ordered by duration.
func SupportedTimeframes() []Timeframe {
	out := make([]Timeframe, 0, len(timeframeSeconds))
	for tf := range timeframeSeconds {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return timeframeSeconds[out[i]] < timeframeSeconds[out[j]] })
	return out
}
