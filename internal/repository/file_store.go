package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// FileStore keeps the collection as an indented JSON array in a single
// file.  Saves go through a temporary file in the same directory that is
// renamed over the target, so readers never observe a half-written file.
type FileStore struct {
	path string
	log  *slog.Logger
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load reads the file.  A missing file, an empty file or unparsable
// content all yield an empty collection.
func (s *FileStore) Load(_ context.Context) ([]model.Reservation, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Reservation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var records []model.Reservation
	if err := json.Unmarshal(raw, &records); err != nil {
		s.log.Warn("reservation file unreadable, starting empty", "path", s.path, "err", err)
		return []model.Reservation{}, nil
	}
	if records == nil {
		records = []model.Reservation{}
	}
	return records, nil
}

// Save writes records atomically.
func (s *FileStore) Save(_ context.Context, records []model.Reservation) error {
	if records == nil {
		records = []model.Reservation{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reservations: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	committed = true
	return nil
}
