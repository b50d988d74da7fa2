package calculator

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/peterldowns/testy/assert"
)

func TestEMA_Recurrence(t *testing.T) {
	got := EMA([]float64{10, 20, 30}, 3)
	// alpha = 0.5
	assert.Equal(t, got[0], 10.0)
	assert.Equal(t, got[1], 15.0)
	assert.Equal(t, got[2], 22.5)
}

func TestEMA_Empty(t *testing.T) {
	assert.Equal(t, len(EMA(nil, 20)), 0)
}

func TestEMA_PropagatesNaN(t *testing.T) {
	got := EMA([]float64{1, math.NaN(), 3}, 5)
	assert.Equal(t, got[0], 1.0)
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
}

func TestEMA_SeedsWithFirstValue(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("ema[0] == value[0] for any span", prop.ForAll(
		func(values []float64, span int) bool {
			return EMA(values, span)[0] == values[0]
		},
		gen.SliceOf(gen.Float64Range(-1e6, 1e6)).SuchThat(func(v []float64) bool { return len(v) > 0 }),
		gen.IntRange(1, 500),
	))

	properties.Property("ema stays within the range of its inputs", prop.ForAll(
		func(values []float64, span int) bool {
			lo, hi := values[0], values[0]
			for _, v := range values {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			eps := 1e-9 * math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
			for _, e := range EMA(values, span) {
				if e < lo-eps || e > hi+eps {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(1, 1000)).SuchThat(func(v []float64) bool { return len(v) > 0 }),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
