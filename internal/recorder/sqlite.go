package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"HeikinSentinel/internal/model"
)

// SQLiteRecorder persists alert and cycle history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

var _ Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the state/analyze commands read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			fired_at    INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			direction   TEXT NOT NULL,
			threshold   REAL NOT NULL,
			bb_percent  REAL,
			candle_time INTEGER NOT NULL,
			delivered   INTEGER NOT NULL,
			notify_err  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_fired ON alerts(fired_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_pair ON alerts(symbol, timeframe)`,

		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			pairs       INTEGER,
			alerts      INTEGER,
			suppressed  INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON scan_cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAlert(evt *AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.FiredAt.IsZero() {
		evt.FiredAt = time.Now()
	}
	d := evt.Detection
	_, err := r.db.Exec(`INSERT INTO alerts
		(id, fired_at, symbol, timeframe, direction, threshold, bb_percent, candle_time, delivered, notify_err)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.FiredAt.Unix(), d.Key.Symbol, d.Key.Timeframe.String(), string(d.Direction),
		d.Threshold, d.BBPercent, d.CandleTime.Unix(), evt.Delivered, evt.NotifyErr,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(stats *model.CycleStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats.ID == "" {
		stats.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`INSERT INTO scan_cycles
		(id, started_at, duration_ms, pairs, alerts, suppressed, failed)
		VALUES (?,?,?,?,?,?,?)`,
		stats.ID, stats.StartedAt.Unix(), stats.Duration().Milliseconds(),
		stats.Pairs, stats.Alerts, stats.Suppressed, stats.Failed,
	)
	return err
}

// Summary aggregates alerts fired at or after since, and the cycles started since then.
func (r *SQLiteRecorder) Summary(since time.Time) (*model.AlertSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := &model.AlertSummary{
		Since:       since,
		ByDirection: map[model.Direction]int{},
		ByThreshold: map[string]int{},
	}

	rows, err := r.db.Query(`SELECT direction, threshold, COUNT(*) FROM alerts
		WHERE fired_at >= ? GROUP BY direction, threshold`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			dir       string
			threshold float64
			n         int
		)
		if err := rows.Scan(&dir, &threshold, &n); err != nil {
			return nil, fmt.Errorf("scan alerts: %w", err)
		}
		sum.Total += n
		sum.ByDirection[model.Direction(dir)] += n
		sum.ByThreshold[model.FormatThreshold(threshold)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	if err := r.db.QueryRow(`SELECT COUNT(*) FROM scan_cycles WHERE started_at >= ?`, since.Unix()).Scan(&sum.Cycles); err != nil {
		return nil, fmt.Errorf("count cycles: %w", err)
	}

	var (
		last       model.CycleStats
		startedAt  int64
		durationMS int64
	)
	err = r.db.QueryRow(`SELECT id, started_at, duration_ms, pairs, alerts, suppressed, failed
		FROM scan_cycles ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&last.ID, &startedAt, &durationMS, &last.Pairs, &last.Alerts, &last.Suppressed, &last.Failed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("last cycle: %w", err)
	default:
		last.StartedAt = time.Unix(startedAt, 0)
		last.FinishedAt = last.StartedAt.Add(time.Duration(durationMS) * time.Millisecond)
		sum.LastCycle = &last
	}
	return sum, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
