package calculator

import (
	"math"

	"HeikinSentinel/internal/model"
)

// cancelRatio is the drop in m2 on a single eviction past which the sliding update has
// lost too many significant digits and the window is recomputed.
const cancelRatio = 1e-4

// rollingStats tracks the mean and sum of squared deviations of a fixed-size
// trailing window using a sliding Welford update. The window is recomputed in two
// passes every size evictions and after any eviction that cancels most of m2, so
// rounding never accumulates. A run of identical samples covering the whole window
// is reported exactly.
type rollingStats struct {
	size   int
	window []float64
	next   int
	count  int
	mean   float64
	m2     float64
	slides int // evictions since the last recompute

	last float64
	run  int
}

func newRollingStats(size int) *rollingStats {
	return &rollingStats{size: size, window: make([]float64, size)}
}

// push adds v and evicts the oldest sample once the window is full.
func (r *rollingStats) push(v float64) {
	if r.count > 0 && v == r.last {
		r.run++
	} else {
		r.run = 1
	}
	r.last = v

	if r.count < r.size {
		r.window[r.next] = v
		r.next = (r.next + 1) % r.size
		r.count++
		delta := v - r.mean
		r.mean += delta / float64(r.count)
		r.m2 += delta * (v - r.mean)
		return
	}

	old := r.window[r.next]
	r.window[r.next] = v
	r.next = (r.next + 1) % r.size

	oldMean, oldM2 := r.mean, r.m2
	r.mean += (v - old) / float64(r.size)
	r.m2 += (v - old) * (v - r.mean + old - oldMean)
	r.slides++
	switch {
	case r.slides >= r.size || (oldM2 > 0 && r.m2 <= oldM2*cancelRatio):
		r.recompute()
	case r.m2 < 0:
		r.m2 = 0
	}
}

// recompute derives mean and m2 from the window directly.
func (r *rollingStats) recompute() {
	var sum float64
	for _, v := range r.window {
		sum += v
	}
	mean := sum / float64(r.size)
	var m2 float64
	for _, v := range r.window {
		d := v - mean
		m2 += d * d
	}
	r.mean, r.m2, r.slides = mean, m2, 0
}

func (r *rollingStats) full() bool { return r.count == r.size }

func (r *rollingStats) constant() bool { return r.run >= r.count }

func (r *rollingStats) avg() float64 {
	if r.constant() {
		return r.last
	}
	return r.mean
}

// sampleStd returns the sample standard deviation of the window, NaN below two samples.
func (r *rollingStats) sampleStd() float64 {
	if r.count < 2 {
		return math.NaN()
	}
	if r.constant() {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.count-1))
}

// RollingMean returns the trailing arithmetic mean over period samples, NaN until the
// window is full.
func RollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	stats := newRollingStats(period)
	for i, v := range values {
		stats.push(v)
		if stats.full() {
			out[i] = stats.avg()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Closes extracts close prices.
func Closes(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Lows extracts low prices.
func Lows(candles []model.Candle) []float64 {
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
	}
	return lows
}
