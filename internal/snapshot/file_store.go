package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists snapshots as a JSON file on local disk.
//
// Writes go through a temp file in the same directory followed by a rename,
// so a crash mid-write leaves the previous document intact rather than a
// torn one. The file handle is flushed and closed on every exit path.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a file-backed snapshot store at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Save serializes the snapshot atomically. The returned error is informative
// only — callers keep in-memory state authoritative on failure.
func (st *FileStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := os.Rename(tmpName, st.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// writeAndSync writes data, flushes, and closes f on every path.
func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads the prior snapshot. Absent, unreadable, or structurally invalid
// documents yield the default snapshot and a nil error — corruption recovery
// must never block startup.
func (st *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			st.logger.Warn("snapshot unreadable, starting from defaults", "path", st.path, "error", err)
		}
		return Default(), nil
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		st.logger.Warn("snapshot malformed, starting from defaults", "path", st.path, "error", err)
		return Default(), nil
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		st.logger.Warn("snapshot failed validation, starting from defaults", "path", st.path, "error", err)
		return Default(), nil
	}
	return &s, nil
}
