// Package fixture builds deterministic candle series for tests.
package fixture

import (
	"time"

	"HeikinSentinel/internal/model"
)

// Base is the price level the fixtures are built around.
const Base = 100.0

// Swing is the size of the balancing spike and dip in Bullish.
const Swing = 8.0

// Start is the timestamp of the first fixture candle.
var Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Flat returns n candles with open, high, low and close all equal to price.
func Flat(n int, tf model.Timeframe, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Time:  Start.Add(time.Duration(i) * tf.Duration()),
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		}
	}
	return candles
}

// Bullish returns 300 raw candles whose Heikin-Ashi transform yields a bullish
// EMA-in-body candle at index 298 with %B at 0.5 for a 200 period band.
//
// The history is flat at Base except a spike at index 150 and a dip at index 297 that
// cancel in the band mean. The smoothed candle at 298 opens at 96 and closes at 100 while
// the EMA of the smoothed lows sits near 98.5. The confirmation candle at 299 opens at 98;
// with confirmationLow >= 98 its smoothed low equals its open (zero shadow).
func Bullish(tf model.Timeframe, confirmationLow float64) []model.Candle {
	candles := Flat(300, tf, Base)
	set := func(i int, o, h, l, c float64) {
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = o, h, l, c
	}
	set(150, Base+Swing, Base+Swing, Base+Swing, Base+Swing)
	set(297, Base-Swing, Base-Swing, Base-Swing, Base-Swing)
	set(298, Base-Swing, Base+Swing, Base-Swing, Base+Swing)
	set(299, Base, Base+Swing, confirmationLow, Base+Swing)
	return candles
}

// Bearish returns 300 raw candles whose Heikin-Ashi transform yields a bearish
// EMA-in-body candle at index 298 with %B close to 0.5 for a 200 period band.
//
// The history is flat at Base, then flat at Base+10 for the 18 candles before index 298,
// which lifts the EMA of the smoothed lows to about 107.3. The smoothed candle at 298 opens
// near 110 and closes at 101. The confirmation candle at 299 opens near 105.5; with
// confirmationHigh <= 105 its smoothed high equals its open (zero shadow).
func Bearish(tf model.Timeframe, confirmationHigh float64) []model.Candle {
	candles := Flat(300, tf, Base)
	for i := 280; i < 298; i++ {
		p := Base + 10
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = p, p, p, p
	}
	candles[298].Open, candles[298].High, candles[298].Low, candles[298].Close = 101, 101, 101, 101
	candles[299].Open, candles[299].High, candles[299].Low, candles[299].Close = 101, confirmationHigh, 101, 101
	return candles
}
