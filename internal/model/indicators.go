package model

import "math"

// IndicatorRow is a smoothed candle augmented with derived indicator values.
// Fields that cannot be computed yet hold NaN.
type IndicatorRow struct {
	Candle

	TrendEMA float64 // EMA of the smoothed low

	BBMiddle  float64
	BBTop     float64
	BBBottom  float64
	BBPercent float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
}

// Defined reports whether v holds a computed indicator value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
