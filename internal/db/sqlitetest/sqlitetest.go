// Package sqlitetest opens throwaway SQLite databases with the full schema for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"testing"

	intdb "fleetcore/internal/db"

	_ "github.com/mattn/go-sqlite3"
)

// Open returns a migrated in-memory database with foreign keys enforced.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is a new database, so pin one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	intdb.SetDialect(intdb.SQLite)
	if err := intdb.Migrate(context.Background(), db, intdb.SQLite); err != nil {
		_ = db.Close()
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// MustExec runs a seed statement and returns the inserted id.
func MustExec(t testing.TB, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("seed %q: %v", query, err)
	}
	id, _ := res.LastInsertId()
	return id
}
