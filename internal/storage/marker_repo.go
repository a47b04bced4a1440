package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// MarkerRepo holds small pieces of client-local state keyed by name.
type MarkerRepo struct {
	db *sql.DB
}

func NewMarkerRepo(db *sql.DB) *MarkerRepo {
	return &MarkerRepo{db: db}
}

// Get returns ok=false when the marker was never set.
func (r *MarkerRepo) Get(ctx context.Context, key string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM local_markers WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("marker get: %w", err)
	}
	return v, true, nil
}

func (r *MarkerRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_markers (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("marker set: %w", err)
	}
	return nil
}

func (r *MarkerRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_markers WHERE key = ?`, key); err != nil {
		return fmt.Errorf("marker delete: %w", err)
	}
	return nil
}
