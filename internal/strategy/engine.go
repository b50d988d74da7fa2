package strategy

import (
	"math"

	"HeikinSentinel/internal/calculator"
	"HeikinSentinel/internal/model"
)

// DefaultThresholds are the %B levels watched by the scanner, in match order.
var DefaultThresholds = []float64{0, 0.5, 1}

// DefaultTolerance is how close %B must sit to a threshold.
const DefaultTolerance = 0.02

// Params configures the opportunity rule.
type Params struct {
	Thresholds []float64
	Tolerance  float64
}

// DefaultParams returns the thresholds and tolerance used by the scanner.
func DefaultParams() Params {
	return Params{
		Thresholds: append([]float64(nil), DefaultThresholds...),
		Tolerance:  DefaultTolerance,
	}
}

// matchThreshold returns the first threshold within tolerance of pct.
// List order is the tie-break.
func (p Params) matchThreshold(pct float64) (float64, bool) {
	if math.IsNaN(pct) {
		return 0, false
	}
	for _, t := range p.Thresholds {
		if math.Abs(pct-t) <= p.Tolerance {
			return t, true
		}
	}
	return 0, false
}

// Detect classifies the last closed row of an augmented series.
//
// The second-to-last row is the current candle; the last row is the confirmation candle
// and is only inspected for an adverse shadow. Detect returns no detections (and no error)
// when the current row's %B or trend EMA is undefined or no threshold matches. A series
// with fewer than two rows yields an InsufficientDataError.
func Detect(key model.AlertKey, rows []model.IndicatorRow, p Params) ([]model.Detection, error) {
	if len(rows) < 2 {
		return nil, &calculator.InsufficientDataError{Have: len(rows), Need: 2}
	}
	cur := rows[len(rows)-2]
	conf := rows[len(rows)-1]

	if !model.Defined(cur.BBPercent) || !model.Defined(cur.TrendEMA) {
		return nil, nil
	}
	threshold, ok := p.matchThreshold(cur.BBPercent)
	if !ok {
		return nil, nil
	}

	var out []model.Detection
	emit := func(dir model.Direction) {
		out = append(out, model.Detection{
			Key:        key,
			Threshold:  threshold,
			Direction:  dir,
			CandleTime: cur.Time,
			BBPercent:  cur.BBPercent,
		})
	}
	if isBullish(cur, conf) {
		emit(model.Bullish)
	}
	if isBearish(cur, conf) {
		emit(model.Bearish)
	}
	return out, nil
}
