package strategy

import "HeikinSentinel/internal/model"

// bodyHoldsEMA reports whether the trend EMA lies inside the candle body, bounds included.
func bodyHoldsEMA(r model.IndicatorRow) bool {
	lo, hi := r.Open, r.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo <= r.TrendEMA && r.TrendEMA <= hi
}

// bullishShadow is the lower wick below the body.
func bullishShadow(c model.Candle) float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// bearishShadow is the upper wick above the body.
func bearishShadow(c model.Candle) float64 {
	if c.Close <= c.Open {
		return c.High - c.Open
	}
	return c.High - c.Close
}

func isBullish(cur, conf model.IndicatorRow) bool {
	return cur.Close > cur.Open && bodyHoldsEMA(cur) && bullishShadow(conf.Candle) == 0
}

func isBearish(cur, conf model.IndicatorRow) bool {
	return cur.Close < cur.Open && bodyHoldsEMA(cur) && bearishShadow(conf.Candle) == 0
}
