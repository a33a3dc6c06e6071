package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/cautela/internal/model"
)

// Kind names one of the per-unit values kept in the local cache.
type Kind string

// Cache kinds.
const (
	KindMovements Kind = "movements"
	KindOperator  Kind = "operator"
	KindEndpoint  Kind = "endpoint"
)

// PutEntry creates or overwrites the cache entry for a unit and kind.
func PutEntry(ctx context.Context, db *sql.DB, unit model.UnitID, kind Kind, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cache_entries (unit, kind, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (unit, kind) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(unit), string(kind), value,
	)
	if err != nil {
		return fmt.Errorf("writing %s cache entry for %s: %w", kind, unit, err)
	}
	return nil
}

// GetEntry returns the cache entry for a unit and kind. The boolean is false
// when the entry was never written.
func GetEntry(ctx context.Context, db *sql.DB, unit model.UnitID, kind Kind) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE unit = ? AND kind = ?`,
		string(unit), string(kind),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s cache entry for %s: %w", kind, unit, err)
	}
	return value, true, nil
}

// DeleteEntry removes the cache entry for a unit and kind, if any.
func DeleteEntry(ctx context.Context, db *sql.DB, unit model.UnitID, kind Kind) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE unit = ? AND kind = ?`,
		string(unit), string(kind),
	)
	if err != nil {
		return fmt.Errorf("deleting %s cache entry for %s: %w", kind, unit, err)
	}
	return nil
}
