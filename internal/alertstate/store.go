// Package alertstate remembers the last threshold each (symbol, timeframe) pair alerted at,
// so every threshold transition is reported once.
package alertstate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"HeikinSentinel/internal/model"
)

// Store is the durable alert state consulted by the scan loop.
type Store interface {
	// Load replaces the in-memory state with the durable copy.
	// A missing or empty durable copy yields an empty state.
	Load(ctx context.Context) error
	// ShouldFire reports whether an alert at threshold is new for key.
	ShouldFire(key model.AlertKey, threshold float64) bool
	// Record stores threshold as the last fired level for key and persists the state.
	// The in-memory entry is updated even when persisting fails.
	Record(ctx context.Context, key model.AlertKey, threshold float64, at time.Time) error
	// Flush persists the state if an earlier write failed.
	Flush(ctx context.Context) error
	// Snapshot returns a copy of all entries keyed by their durable key.
	Snapshot() map[string]model.AlertRecord
	Close() error
}

// StoreIOError reports a durable state that could not be read or written.
type StoreIOError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("alert state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// entries is the mutex-guarded map shared by the store implementations.
type entries struct {
	mu    sync.Mutex
	m     map[string]model.AlertRecord
	dirty bool
}

func (e *entries) ShouldFire(key model.AlertKey, threshold float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.m[key.String()]
	return !ok || rec.Threshold != threshold
}

func (e *entries) Snapshot() map[string]model.AlertRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]model.AlertRecord, len(e.m))
	for k, v := range e.m {
		out[k] = v
	}
	return out
}

// SortedKeys returns the keys of a snapshot in lexical order.
func SortedKeys(snap map[string]model.AlertRecord) []string {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
