// Package storage persists run records and archives run artifacts.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/database"
)

// ErrNotFound is returned when no backend holds a record for the id.
var ErrNotFound = errors.New("record not found")

// ResultStore persists serialized run records keyed by run id.
type ResultStore interface {
	// Save writes the whole document for id, replacing any previous one.
	Save(ctx context.Context, id string, doc []byte) error

	// Load returns the document for id, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)

	// Type returns "file", "postgres" or "fallback".
	Type() string
}

// PersistenceError is a failed backend operation.
type PersistenceError struct {
	Backend string
	Op      string // "save" or "load"
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// New creates the result store. Records always go to files under
// resultsDir; with a database they go to Postgres first and the files act
// as the fallback copy.
func New(db *database.DB, resultsDir string, log zerolog.Logger) ResultStore {
	files := NewFileStore(resultsDir)
	if db == nil {
		log.Warn().Str("dir", resultsDir).Msg("no database configured, storing results on disk only")
		return files
	}
	return NewFallbackStore(NewPostgresStore(db), files, log)
}
