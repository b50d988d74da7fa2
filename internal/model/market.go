package model

import "time"

// Candle represents a single OHLC bar. Series are ordered oldest first.
type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Series holds the candles of one monitored pair.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
	FetchedAt time.Time
}

// Last returns the most recent candle, which may still be forming.
func (s *Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}
