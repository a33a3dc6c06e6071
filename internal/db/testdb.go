package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a database file under the test's temp dir with the schema
// applied. It is closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "cautela.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("applying test database schema: %v", err)
	}
	return db
}
