// Package store implements the local paper store: a SQLite database with
// a full-text index, versioned migrations, and a directory-per-key PDF
// file store.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the store's SQLite connection.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the store database at path.
// The schema is not touched until Initialize runs the migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Initialize applies pending migrations. FilesDir, when set, lets
// migrations relocate legacy flat-layout PDFs into the per-key layout.
func (d *DB) Initialize(ctx MigrationContext) error {
	return runMigrations(d.db, ctx)
}

// Conn exposes the underlying connection for the repository.
func (d *DB) Conn() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
