package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"HeikinSentinel/internal/alertstate"
	"HeikinSentinel/internal/calculator"
	"HeikinSentinel/internal/collector"
	"HeikinSentinel/internal/logging"
	"HeikinSentinel/internal/metrics"
	"HeikinSentinel/internal/model"
	"HeikinSentinel/internal/notifier"
	"HeikinSentinel/internal/recorder"
	"HeikinSentinel/internal/strategy"
)

// ScanKind classifies a failed pair scan.
type ScanKind string

const (
	KindFetch            ScanKind = "fetch"
	KindBadInterval      ScanKind = "bad_interval"
	KindInsufficientData ScanKind = "insufficient_data"
	KindCanceled         ScanKind = "canceled"
	KindOther            ScanKind = "other"
)

// ScanError is the failed result of scanning one pair.
type ScanError struct {
	Symbol    string
	Timeframe model.Timeframe
	Kind      ScanKind
	Err       error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s %s (%s): %v", e.Symbol, e.Timeframe, e.Kind, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

func classify(err error) ScanKind {
	var (
		fe *collector.FetchError
		be *model.BadIntervalError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &be):
		return KindBadInterval
	case errors.As(err, &fe):
		return KindFetch
	case errors.Is(err, calculator.ErrInsufficientData):
		return KindInsufficientData
	default:
		return KindOther
	}
}

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 60 * time.Second

// ScanConfig wires the scan loop to its collaborators.
// Recorder, Metrics and Health are optional.
type ScanConfig struct {
	Universe     collector.SymbolUniverse
	UniverseSize int
	Timeframes   []model.Timeframe
	Collector    *collector.Collector
	Strategy     strategy.Params
	Store        alertstate.Store
	Notifier     notifier.Notifier
	Recorder     recorder.Recorder
	Metrics      *metrics.Metrics
	Health       *metrics.Health
	Interval     time.Duration
	Concurrency  int
	Logger       zerolog.Logger
	Now          func() time.Time
}

// ScanLoop polls every symbol and timeframe, detects opportunities and alerts on
// each new threshold level.
type ScanLoop struct {
	cfg    ScanConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	symbols []string
	last    *model.CycleStats

	locks keyLocks
}

// NewScanLoop validates cfg. An unsupported timeframe fails here, before any pair is scanned.
func NewScanLoop(cfg ScanConfig) (*ScanLoop, error) {
	if cfg.Universe == nil || cfg.Collector == nil || cfg.Store == nil || cfg.Notifier == nil {
		return nil, errors.New("scan loop needs a universe, collector, store and notifier")
	}
	if len(cfg.Timeframes) == 0 {
		return nil, errors.New("scan loop needs at least one timeframe")
	}
	for _, tf := range cfg.Timeframes {
		if err := tf.Validate(); err != nil {
			return nil, err
		}
	}
	if len(cfg.Strategy.Thresholds) == 0 {
		cfg.Strategy = strategy.DefaultParams()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = recorder.NewNoopRecorder()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ScanLoop{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "scan").Logger(),
		locks:  keyLocks{m: make(map[model.AlertKey]*sync.Mutex)},
	}, nil
}

// Init fetches the symbol universe. It runs once; later calls are no-ops.
func (l *ScanLoop) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.symbols != nil {
		return nil
	}
	symbols, err := l.cfg.Universe.Top(ctx, l.cfg.UniverseSize)
	if err != nil {
		return fmt.Errorf("fetch symbol universe: %w", err)
	}
	if len(symbols) == 0 {
		return errors.New("symbol universe is empty")
	}
	l.symbols = symbols
	l.logger.Info().Int("symbols", len(symbols)).Int("timeframes", len(l.cfg.Timeframes)).Msg("symbol universe loaded")
	return nil
}

// Pairs lists every monitored (symbol, timeframe) pair, symbol-major.
func (l *ScanLoop) Pairs() []model.AlertKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pairs := make([]model.AlertKey, 0, len(l.symbols)*len(l.cfg.Timeframes))
	for _, s := range l.symbols {
		for _, tf := range l.cfg.Timeframes {
			pairs = append(pairs, model.AlertKey{Symbol: s, Timeframe: tf})
		}
	}
	return pairs
}

// Timeframes returns the scanned timeframes.
func (l *ScanLoop) Timeframes() []model.Timeframe {
	return append([]model.Timeframe(nil), l.cfg.Timeframes...)
}

// LastCycle returns the statistics of the most recent cycle, or nil before the first.
func (l *ScanLoop) LastCycle() *model.CycleStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.last == nil {
		return nil
	}
	c := *l.last
	return &c
}

// Run scans until ctx is cancelled. A universe that cannot be fetched is retried
// after each interval. Cancellation interrupts the sleep between cycles and is not
// reported as an error.
func (l *ScanLoop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("scan loop stopped")
			return nil
		case <-timer.C:
		}

		if err := l.Init(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.logger.Error().Err(err).Dur("retry_in", l.cfg.Interval).Msg("universe unavailable")
		} else {
			stats := l.RunCycle(ctx)
			l.logger.Info().
				Int("pairs", stats.Pairs).
				Int("alerts", stats.Alerts).
				Int("suppressed", stats.Suppressed).
				Int("failed", stats.Failed).
				Dur("took", stats.Duration()).
				Msg("cycle finished")
		}
		timer.Reset(l.cfg.Interval)
	}
}

// cycleTally collects the outcome of a cycle across workers.
type cycleTally struct {
	mu sync.Mutex
	model.CycleStats
}

func (t *cycleTally) add(alerts, suppressed, failed int) {
	t.mu.Lock()
	t.Alerts += alerts
	t.Suppressed += suppressed
	t.Failed += failed
	t.mu.Unlock()
}

// RunCycle scans every pair once with bounded concurrency. A failing pair is logged
// and skipped; it never aborts the cycle.
func (l *ScanLoop) RunCycle(ctx context.Context) *model.CycleStats {
	pairs := l.Pairs()
	tally := &cycleTally{CycleStats: model.CycleStats{
		ID:        uuid.NewString(),
		StartedAt: l.cfg.Now(),
		Pairs:     len(pairs),
	}}

	p := pool.New().WithMaxGoroutines(l.cfg.Concurrency)
	for _, key := range pairs {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			dets, err := l.ScanPair(ctx, key)
			if err != nil {
				l.reportFailure(err)
				tally.add(0, 0, 1)
				return
			}
			l.observePair("ok")
			fired, suppressed := l.handle(ctx, dets)
			tally.add(fired, suppressed, 0)
		})
	}
	p.Wait()

	if err := l.cfg.Store.Flush(context.WithoutCancel(ctx)); err != nil {
		l.logger.Error().Err(err).Msg("alert state still not persisted")
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.StoreSaveErrors.Inc()
		}
	}

	tally.mu.Lock()
	tally.FinishedAt = l.cfg.Now()
	stats := tally.CycleStats
	tally.mu.Unlock()

	if err := l.cfg.Recorder.RecordCycle(&stats); err != nil {
		l.logger.Warn().Err(err).Msg("record cycle")
	}
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.ObserveCycle(stats.StartedAt, stats.FinishedAt)
	}
	if l.cfg.Health != nil {
		l.cfg.Health.CycleDone(stats.FinishedAt, stats.Pairs)
	}

	l.mu.Lock()
	l.last = &stats
	l.mu.Unlock()
	return &stats
}

// ScanPair fetches one pair, runs the indicator pipeline and returns its detections.
// Every failure is a *ScanError.
func (l *ScanLoop) ScanPair(ctx context.Context, key model.AlertKey) ([]model.Detection, error) {
	analysis, err := l.cfg.Collector.Analyze(ctx, key)
	if err == nil {
		var dets []model.Detection
		dets, err = strategy.Detect(key, analysis.Rows, l.cfg.Strategy)
		if err == nil {
			return dets, nil
		}
	}
	return nil, &ScanError{Symbol: key.Symbol, Timeframe: key.Timeframe, Kind: classify(err), Err: err}
}

func (l *ScanLoop) reportFailure(err error) {
	var se *ScanError
	if !errors.As(err, &se) {
		l.logger.Error().Err(err).Msg("pair scan failed")
		l.observePair(string(KindOther))
		return
	}
	if se.Kind == KindCanceled {
		return
	}
	logger := logging.ForPair(l.logger, se.Symbol, se.Timeframe.String())
	event := logger.Warn()
	if se.Kind == KindBadInterval || se.Kind == KindOther {
		event = logger.Error()
	}
	event.Str("kind", string(se.Kind)).Err(se.Err).Msg("pair skipped")
	l.observePair(string(se.Kind))
}

func (l *ScanLoop) observePair(result string) {
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.PairScans.WithLabelValues(result).Inc()
	}
}

// handle delivers and records every detection whose level has not fired yet.
// Check, delivery and record run under the pair's lock.
func (l *ScanLoop) handle(ctx context.Context, dets []model.Detection) (fired, suppressed int) {
	for _, d := range dets {
		if l.fire(ctx, d) {
			fired++
		} else {
			suppressed++
		}
	}
	return fired, suppressed
}

func (l *ScanLoop) fire(ctx context.Context, d model.Detection) bool {
	unlock := l.locks.lock(d.Key)
	defer unlock()

	logger := logging.ForPair(l.logger, d.Key.Symbol, d.Key.Timeframe.String())
	if !l.cfg.Store.ShouldFire(d.Key, d.Threshold) {
		logger.Debug().Str("direction", string(d.Direction)).Float64("threshold", d.Threshold).Msg("already alerted at this level")
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.AlertsSuppressed.Inc()
		}
		return false
	}

	// The decision to alert is final: state is recorded whatever happens to delivery
	// or to the caller's context.
	persistCtx := context.WithoutCancel(ctx)
	firedAt := l.cfg.Now()

	evt := &recorder.AlertEvent{Detection: d, FiredAt: firedAt, Delivered: true}
	if err := l.cfg.Notifier.Send(ctx, notifier.FormatAlert(d)); err != nil {
		evt.Delivered = false
		evt.NotifyErr = err.Error()
		logger.Warn().Err(err).Msg("alert delivery failed")
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.NotifyFailures.Inc()
		}
	}

	if err := l.cfg.Store.Record(persistCtx, d.Key, d.Threshold, firedAt); err != nil {
		logger.Error().Err(err).Float64("threshold", d.Threshold).Msg("alert state not persisted, retrying after the cycle")
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.StoreSaveErrors.Inc()
		}
	}
	if err := l.cfg.Recorder.RecordAlert(evt); err != nil {
		logger.Warn().Err(err).Msg("record alert")
	}
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.AlertsFired.WithLabelValues(string(d.Direction)).Inc()
	}

	logger.Info().
		Str("direction", string(d.Direction)).
		Float64("threshold", d.Threshold).
		Float64("bb_percent", d.BBPercent).
		Time("candle", d.CandleTime).
		Msg("alert fired")
	return true
}

// keyLocks hands out one mutex per pair.
type keyLocks struct {
	mu sync.Mutex
	m  map[model.AlertKey]*sync.Mutex
}

func (k *keyLocks) lock(key model.AlertKey) func() {
	k.mu.Lock()
	m, ok := k.m[key]
	if !ok {
		m = &sync.Mutex{}
		k.m[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
