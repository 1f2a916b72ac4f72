package store

import (
	"database/sql"
	"fmt"
)

// MigrationContext carries environment migrations may need beyond the
// database connection.
type MigrationContext struct {
	FilesDir string // PDF file store root; "" skips file-layout migrations
}

// migration is a single versioned schema step. Steps run in ascending
// version order, each inside its own transaction; the version row is
// written only when the step succeeds.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx, ctx MigrationContext) error
}

// migrations is the ordered migration list. Append only; never renumber.
var migrations = []migration{
	{version: 1, name: "papers table, FTS index, per-key file layout", apply: migratePapersSchema},
}

// runMigrations applies all pending migrations. A failed step rolls back
// completely, leaves the recorded version unchanged, and aborts.
func runMigrations(db *sql.DB, ctx MigrationContext) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if int64(m.version) <= current.Int64 {
			continue
		}
		if err := applyMigration(db, m, ctx); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration, ctx MigrationContext) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := m.apply(tx, ctx); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		tx.Rollback()
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version (0 when the
// store has never been initialized).
func (d *DB) SchemaVersion() (int, error) {
	var current sql.NullInt64
	err := d.db.QueryRow(`
		SELECT MAX(version) FROM schema_version`).Scan(&current)
	if err != nil {
		return 0, err
	}
	return int(current.Int64), nil
}
