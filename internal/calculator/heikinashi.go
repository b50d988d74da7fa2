package calculator

import (
	"math"

	"HeikinSentinel/internal/model"
)

// HeikinAshi converts raw candles into smoothed candles in a single left-to-right pass.
// Each smoothed open depends on the previous smoothed candle, so the whole window is
// recomputed whenever its start changes.
func HeikinAshi(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, len(candles))
	if len(candles) == 0 {
		return out
	}

	prevOpen := (candles[0].Open + candles[0].Close) / 2
	prevClose := 0.0
	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		haOpen := prevOpen
		if i > 0 {
			haOpen = (prevOpen + prevClose) / 2
		}
		out[i] = model.Candle{
			Time:  c.Time,
			Open:  haOpen,
			High:  math.Max(c.High, math.Max(haOpen, haClose)),
			Low:   math.Min(c.Low, math.Min(haOpen, haClose)),
			Close: haClose,
		}
		prevOpen, prevClose = haOpen, haClose
	}
	return out
}
