package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction is the side of a detected opportunity.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// AlertKey identifies one monitored (symbol, timeframe) pair.
type AlertKey struct {
	Symbol    string
	Timeframe Timeframe
}

// String renders the key the way it is stored on disk.
func (k AlertKey) String() string {
	return fmt.Sprintf("%s_%s", k.Symbol, k.Timeframe)
}

// Detection is a candidate opportunity produced by the detector.
type Detection struct {
	Key        AlertKey
	Threshold  float64
	Direction  Direction
	CandleTime time.Time
	BBPercent  float64
}

// FormatThreshold renders a threshold level with at least one decimal: 0.0, 0.5, 1.0.
func FormatThreshold(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
