package storage

import (
	"context"
	"errors"

	"github.com/snarg/speechscope/internal/database"
	"github.com/snarg/speechscope/internal/metrics"
)

// PostgresStore keeps records in the run_records table.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a Postgres-backed result store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, id string, doc []byte) error {
	err := s.db.UpsertRunRecord(ctx, id, doc)
	metrics.ObserveStore(s.Type(), "save", err)
	if err != nil {
		return &PersistenceError{Backend: s.Type(), Op: "save", Err: err}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) ([]byte, error) {
	doc, err := s.db.GetRunRecord(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		metrics.ObserveStore(s.Type(), "load", nil)
		return nil, ErrNotFound
	}
	metrics.ObserveStore(s.Type(), "load", err)
	if err != nil {
		return nil, &PersistenceError{Backend: s.Type(), Op: "load", Err: err}
	}
	return doc, nil
}

func (s *PostgresStore) Type() string { return "postgres" }
