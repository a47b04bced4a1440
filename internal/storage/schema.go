package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			user TEXT NOT NULL,
			collection TEXT NOT NULL,
			id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user, collection, id)
		);`,
		// Client-local state (e.g. the daily cycle marker); never part of a user's documents.
		`CREATE TABLE IF NOT EXISTS local_markers (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_created ON documents(user, collection, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_updated ON documents(user, collection, updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
