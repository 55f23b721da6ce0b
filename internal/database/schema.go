package database

import "context"

// schemaSQL creates the run record table on a fresh database.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS run_records (
    id                  text PRIMARY KEY,
    url                 text NOT NULL DEFAULT '',
    error               text,
    using_mock_analyzer boolean NOT NULL DEFAULT false,
    created_at          timestamptz NOT NULL DEFAULT now(),
    updated_at          timestamptz NOT NULL DEFAULT now(),
    record              jsonb NOT NULL
)`

// InitSchema applies the schema if the run_records table is missing.
func (db *DB) InitSchema(ctx context.Context) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'run_records')`,
	).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	db.log.Info().Msg("fresh database detected, applying schema")
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	db.log.Info().Msg("schema applied successfully")
	return nil
}
