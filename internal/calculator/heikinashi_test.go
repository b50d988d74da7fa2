package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/peterldowns/testy/assert"

	"HeikinSentinel/internal/model"
)

// candlesFrom builds a plausible candle series from a price path.
func candlesFrom(prices []float64) []model.Candle {
	candles := make([]model.Candle, len(prices))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		next := prices[(i+1)%len(prices)]
		candles[i] = model.Candle{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  p,
			High:  math.Max(p, next) + 1,
			Low:   math.Min(p, next) - 1,
			Close: next,
		}
	}
	return candles
}

func TestHeikinAshi_Recurrence(t *testing.T) {
	raw := []model.Candle{
		{Open: 10, High: 14, Low: 8, Close: 12},
		{Open: 12, High: 16, Low: 11, Close: 15},
		{Open: 15, High: 15, Low: 9, Close: 10},
	}
	ha := HeikinAshi(raw)
	assert.Equal(t, len(ha), 3)

	// i = 0
	assert.Equal(t, ha[0].Close, 11.0)
	assert.Equal(t, ha[0].Open, 11.0)
	assert.Equal(t, ha[0].High, 14.0)
	assert.Equal(t, ha[0].Low, 8.0)

	// i = 1
	assert.Equal(t, ha[1].Close, 13.5)
	assert.Equal(t, ha[1].Open, 11.0)
	assert.Equal(t, ha[1].High, 16.0)
	assert.Equal(t, ha[1].Low, 11.0)

	// i = 2
	assert.Equal(t, ha[2].Close, 12.25)
	assert.Equal(t, ha[2].Open, 12.25)
	assert.Equal(t, ha[2].High, 15.0)
	assert.Equal(t, ha[2].Low, 9.0)
}

func TestHeikinAshi_Empty(t *testing.T) {
	assert.Equal(t, len(HeikinAshi(nil)), 0)
}

func TestHeikinAshi_KeepsTimestamps(t *testing.T) {
	raw := candlesFrom([]float64{1, 2, 3, 4})
	ha := HeikinAshi(raw)
	for i := range raw {
		assert.True(t, ha[i].Time.Equal(raw[i].Time))
	}
}

func TestHeikinAshi_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	prices := gen.SliceOf(gen.Float64Range(1, 1000)).SuchThat(func(v []float64) bool { return len(v) >= 2 })

	properties.Property("open is the mean of the previous smoothed open and close", prop.ForAll(
		func(p []float64) bool {
			ha := HeikinAshi(candlesFrom(p))
			for i := 1; i < len(ha); i++ {
				lo := math.Min(ha[i-1].Open, ha[i-1].Close)
				hi := math.Max(ha[i-1].Open, ha[i-1].Close)
				if ha[i].Open < lo || ha[i].Open > hi {
					return false
				}
			}
			return true
		},
		prices,
	))

	properties.Property("high and low bound the smoothed body", prop.ForAll(
		func(p []float64) bool {
			for _, c := range HeikinAshi(candlesFrom(p)) {
				if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
					return false
				}
			}
			return true
		},
		prices,
	))

	properties.TestingRun(t)
}
