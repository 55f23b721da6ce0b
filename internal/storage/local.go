package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/snarg/speechscope/internal/metrics"
)

// FileStore stores each record as {dir}/{id}.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed result store.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Save(ctx context.Context, id string, doc []byte) error {
	err := writeFileAtomic(s.Path(id), doc)
	metrics.ObserveStore(s.Type(), "save", err)
	if err != nil {
		return &PersistenceError{Backend: s.Type(), Op: "save", Err: err}
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		metrics.ObserveStore(s.Type(), "load", nil)
		return nil, ErrNotFound
	}
	metrics.ObserveStore(s.Type(), "load", err)
	if err != nil {
		return nil, &PersistenceError{Backend: s.Type(), Op: "load", Err: err}
	}
	return data, nil
}

func (s *FileStore) Type() string { return "file" }

// Path returns the file location for a record id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Dir returns the results directory.
func (s *FileStore) Dir() string { return s.dir }

// writeFileAtomic writes data via temp file + rename so readers never see
// a partially written document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".result-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
