// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/yalmoalm/JaMoveo/internal/database"
)

// Open opens a fresh SQLite database in t.TempDir(), applies all
// migrations and registers cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}
