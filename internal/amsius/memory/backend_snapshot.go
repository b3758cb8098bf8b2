package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultSnapshotPath is the relative path of the snapshot file used when
// no database is configured.
const DefaultSnapshotPath = "amsius_memory.json"

// SnapshotBackend persists the corpus as a JSON array of strings in a
// single file, rewritten in full after every append. It is the fallback
// when no database is configured or the database cannot be opened.
type SnapshotBackend struct {
	path   string
	logger *slog.Logger
}

// NewSnapshotBackend creates a SnapshotBackend at path. An empty path
// selects DefaultSnapshotPath. If logger is nil, the default slog logger
// is used.
func NewSnapshotBackend(path string, logger *slog.Logger) *SnapshotBackend {
	if path == "" {
		path = DefaultSnapshotPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotBackend{path: path, logger: logger}
}

// Load parses the snapshot file as an ordered JSON array of strings and
// returns the newest limit entries (the tail), oldest-first. A missing
// file yields an empty corpus. A corrupt file is deleted and likewise
// yields an empty corpus — a deliberate recovery action so the next
// restart does not trip over the same bad bytes.
func (s *SnapshotBackend) Load(_ context.Context, limit int) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory snapshot: read %s: %w", s.path, err)
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		s.logger.Warn("memory snapshot: corrupt file, deleting and starting empty",
			"path", s.path, "err", err)
		if rmErr := os.Remove(s.path); rmErr != nil {
			s.logger.Warn("memory snapshot: delete corrupt file", "path", s.path, "err", rmErr)
		}
		return nil, nil
	}

	if limit > 0 && len(texts) > limit {
		texts = texts[len(texts)-limit:]
	}

	s.logger.Debug("memory snapshot: loaded corpus", "path", s.path, "messages", len(texts))
	return texts, nil
}

// Save overwrites the snapshot file with the full corpus. The write goes
// to a temporary file in the same directory first and is renamed into
// place so a crash mid-write never leaves a truncated snapshot.
func (s *SnapshotBackend) Save(_ context.Context, _ string, corpus []string) error {
	data, err := json.Marshal(corpus)
	if err != nil {
		return fmt.Errorf("memory snapshot: marshal corpus: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("memory snapshot: create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("memory snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("memory snapshot: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("memory snapshot: replace %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op: the backend holds no open resources between calls.
func (s *SnapshotBackend) Close() error { return nil }

// Compile-time interface satisfaction check.
var _ Backend = (*SnapshotBackend)(nil)
