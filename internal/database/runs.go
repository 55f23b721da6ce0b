package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// recordHeader is the subset of a run record document mirrored into
// columns for indexing.
type recordHeader struct {
	URL               string    `json:"url"`
	Error             *string   `json:"error"`
	UsingMockAnalyzer bool      `json:"using_mock_analyzer"`
	CreatedAt         time.Time `json:"created_at"`
}

// UpsertRunRecord stores the whole document for id, replacing any earlier
// version. created_at keeps its first value.
func (db *DB) UpsertRunRecord(ctx context.Context, id string, doc []byte) error {
	h, err := parseRecordHeader(doc)
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO run_records (id, url, error, using_mock_analyzer, created_at, updated_at, record)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		ON CONFLICT (id) DO UPDATE SET
			url                 = EXCLUDED.url,
			error               = EXCLUDED.error,
			using_mock_analyzer = EXCLUDED.using_mock_analyzer,
			updated_at          = now(),
			record              = EXCLUDED.record`,
		id, h.URL, h.Error, h.UsingMockAnalyzer, h.CreatedAt, doc,
	)
	return err
}

// GetRunRecord returns the stored document for id, or ErrNotFound.
func (db *DB) GetRunRecord(ctx context.Context, id string) ([]byte, error) {
	var doc []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT record FROM run_records WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func parseRecordHeader(doc []byte) (recordHeader, error) {
	var h recordHeader
	if err := json.Unmarshal(doc, &h); err != nil {
		return h, fmt.Errorf("decode run record header: %w", err)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return h, nil
}
