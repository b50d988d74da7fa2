package calculator

import "math"

// BollingerResult holds the band columns aligned with the input series.
type BollingerResult struct {
	Period  int // effective period, min(requested, len(input))
	Middle  []float64
	Top     []float64
	Bottom  []float64
	Percent []float64
}

// Bollinger computes two-standard-deviation bands over the trailing window.
// The window shrinks to the series length when fewer samples are available.
// %B is NaN whenever the band has zero width.
func Bollinger(closes []float64, period int) BollingerResult {
	n := len(closes)
	eff := period
	if n < eff {
		eff = n
	}
	res := BollingerResult{
		Period:  eff,
		Middle:  make([]float64, n),
		Top:     make([]float64, n),
		Bottom:  make([]float64, n),
		Percent: make([]float64, n),
	}
	if n == 0 {
		return res
	}
	if eff <= 0 {
		for i := range closes {
			res.Middle[i], res.Top[i], res.Bottom[i], res.Percent[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		}
		return res
	}

	stats := newRollingStats(eff)
	for i, c := range closes {
		stats.push(c)
		if !stats.full() {
			res.Middle[i], res.Top[i], res.Bottom[i], res.Percent[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		}
		mid := stats.avg()
		std := stats.sampleStd()
		top := mid + 2*std
		bottom := mid - 2*std
		res.Middle[i] = mid
		res.Top[i] = top
		res.Bottom[i] = bottom
		res.Percent[i] = percentB(c, top, bottom)
	}
	return res
}

func percentB(close, top, bottom float64) float64 {
	width := top - bottom
	if math.IsNaN(width) || width == 0 {
		return math.NaN()
	}
	return (close - bottom) / width
}
