package alertstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"HeikinSentinel/internal/model"
)

// FileStore keeps alert state in a JSON file rewritten atomically after every record.
type FileStore struct {
	entries
	path   string
	logger zerolog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. Call Load before use.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		entries: entries{m: make(map[string]model.AlertRecord)},
		path:    path,
		logger:  logger.With().Str("component", "alertstate").Str("path", path).Logger(),
	}
}

// Load reads the state file. A missing or empty file is an empty state; an unreadable
// or malformed file leaves the state empty and returns a StoreIOError.
func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]model.AlertRecord)
	s.dirty = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info().Msg("no alert state file, starting empty")
			return nil
		}
		return &StoreIOError{Op: "load", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	loaded := make(map[string]model.AlertRecord)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return &StoreIOError{Op: "load", Path: s.path, Err: err}
	}
	if loaded == nil {
		// a literal null decodes to a nil map
		loaded = make(map[string]model.AlertRecord)
	}
	s.m = loaded
	s.logger.Info().Int("entries", len(loaded)).Msg("alert state loaded")
	return nil
}

func (s *FileStore) Record(_ context.Context, key model.AlertKey, threshold float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key.String()] = model.AlertRecord{Threshold: threshold, FiredAt: at.UTC()}
	return s.saveLocked()
}

func (s *FileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked()
}

func (s *FileStore) Close() error { return nil }

// saveLocked writes the whole map to a temp file in the target directory, syncs it and
// renames it over the state file. Must be called with s.mu held.
func (s *FileStore) saveLocked() error {
	if err := writeFileAtomic(s.path, s.m); err != nil {
		s.dirty = true
		return &StoreIOError{Op: "save", Path: s.path, Err: err}
	}
	s.dirty = false
	return nil
}

func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
