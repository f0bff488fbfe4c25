// Package file keeps the progress document as a JSON file with the same shape
// as the browser's localStorage entry, so an exported browser document can be
// dropped in place. Writes are atomic (temp file + rename) and last-writer-wins.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// Store implements progress.Repository over a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ progress.Repository = (*Store)(nil)

// Open returns a store for path, creating its directory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, persistenceError("Open", "file path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, persistenceError("Open", "create directory", err)
	}
	return &Store{path: path}, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the document.
func (s *Store) Load(_ context.Context) (*progress.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.ErrStateNotFound
	}
	if err != nil {
		return nil, persistenceError("Load", "read file", err)
	}

	var st progress.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, persistenceError("Load", "decode document", err)
	}
	return &st, nil
}

// Save writes the document atomically.
func (s *Store) Save(_ context.Context, st *progress.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return persistenceError("Save", "encode document", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".progress-*.tmp")
	if err != nil {
		return persistenceError("Save", "create temp file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return persistenceError("Save", "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return persistenceError("Save", "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return persistenceError("Save", "close temp file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return persistenceError("Save", "replace document", err)
	}
	return nil
}

// Delete removes the document. A missing document is not an error.
func (s *Store) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return persistenceError("Delete", "remove file", err)
	}
	return nil
}

// Close implements progress.Repository.
func (s *Store) Close() error { return nil }

func persistenceError(op, message string, err error) error {
	return shared.WrapError("file", op, shared.ErrPersistence, message, err)
}
