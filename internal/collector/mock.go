package collector

import (
	"context"
	"sync"
	"time"

	"HeikinSentinel/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// Pairs without scripted candles get a gently trending synthetic series.
type MockSource struct {
	Price float64

	mu      sync.Mutex
	candles map[model.AlertKey][]model.Candle
	errs    map[model.AlertKey]error
	calls   map[model.AlertKey]int
}

var _ CandleSource = (*MockSource)(nil)

// NewMockSource creates a mock whose synthetic series trade around price.
func NewMockSource(price float64) *MockSource {
	return &MockSource{
		Price:   price,
		candles: make(map[model.AlertKey][]model.Candle),
		errs:    make(map[model.AlertKey]error),
		calls:   make(map[model.AlertKey]int),
	}
}

func (m *MockSource) Name() string { return "mock" }

// SetCandles scripts the candles returned for key.
func (m *MockSource) SetCandles(key model.AlertKey, candles []model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[key] = candles
}

// SetError makes every fetch of key fail with err; nil clears it.
func (m *MockSource) SetError(key model.AlertKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, key)
		return
	}
	m.errs[key] = err
}

// Calls returns how often key was fetched.
func (m *MockSource) Calls(key model.AlertKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

func (m *MockSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := model.AlertKey{Symbol: symbol, Timeframe: tf}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[key]++
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	if c, ok := m.candles[key]; ok {
		return append([]model.Candle(nil), c...), nil
	}
	return generateMockCandles(m.Price, tf, start, end), nil
}

func generateMockCandles(basePrice float64, tf model.Timeframe, start, end time.Time) []model.Candle {
	step := tf.Duration()
	count := int(end.Sub(start) / step)
	candles := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		candles[i] = model.Candle{
			Time:  start.Add(time.Duration(i) * step).UTC(),
			Open:  p * 0.999,
			High:  p * 1.005,
			Low:   p * 0.995,
			Close: p,
		}
	}
	return candles
}
