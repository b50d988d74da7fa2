package calculator

import "HeikinSentinel/internal/model"

// Params selects the indicator spans used to augment a series.
type Params struct {
	TrendEMA   int
	BBPeriod   int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams mirrors the scanner defaults: EMA20 on lows, BB200, MACD 12/26/9.
func DefaultParams() Params {
	return Params{
		TrendEMA:   20,
		BBPeriod:   200,
		MACDFast:   MACDFast,
		MACDSlow:   MACDSlow,
		MACDSignal: MACDSignal,
	}
}

// Lookback returns the largest window the params need.
func (p Params) Lookback() int {
	if p.BBPeriod > p.TrendEMA {
		return p.BBPeriod
	}
	return p.TrendEMA
}

// Augment runs the indicator engine over already-smoothed candles.
// The trend EMA follows the lows; bands and MACD follow the closes.
func Augment(candles []model.Candle, p Params) []model.IndicatorRow {
	closes := Closes(candles)
	trend := EMA(Lows(candles), p.TrendEMA)
	bb := Bollinger(closes, p.BBPeriod)
	macd := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)

	rows := make([]model.IndicatorRow, len(candles))
	for i, c := range candles {
		rows[i] = model.IndicatorRow{
			Candle:        c,
			TrendEMA:      trend[i],
			BBMiddle:      bb.Middle[i],
			BBTop:         bb.Top[i],
			BBBottom:      bb.Bottom[i],
			BBPercent:     bb.Percent[i],
			MACD:          macd.MACD[i],
			MACDSignal:    macd.Signal[i],
			MACDHistogram: macd.Histogram[i],
		}
	}
	return rows
}

// Pipeline smooths raw candles and augments them.
func Pipeline(raw []model.Candle, p Params) []model.IndicatorRow {
	return Augment(HeikinAshi(raw), p)
}
