package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Joey-Jiao/strata/internal/paper"
)

// papersDDL is the target shape of the papers table. An in-place
// upgrade of the legacy table and a from-scratch creation both end here.
const papersDDL = `
	CREATE TABLE %s (
		citation_key       TEXT PRIMARY KEY,
		item_type          TEXT DEFAULT 'article',
		title              TEXT NOT NULL,
		authors            TEXT,
		year               INTEGER,
		journal            TEXT,
		volume             TEXT,
		issue              TEXT,
		pages              TEXT,
		doi                TEXT,
		url                TEXT,
		abstract           TEXT,
		publisher          TEXT,
		book_title         TEXT,
		source_keys        TEXT,
		source_tags        TEXT,
		source_collections TEXT,
		pdf_path           TEXT,
		arxiv_id           TEXT,
		venue              TEXT,
		imported_at        TEXT,
		synced_at          TEXT,
		deleted_at         TEXT
	)`

const papersIndexes = `
	CREATE INDEX idx_papers_year ON papers(year);
	CREATE INDEX idx_papers_title ON papers(title);
	CREATE UNIQUE INDEX idx_papers_doi ON papers(doi)
		WHERE doi IS NOT NULL AND deleted_at IS NULL;
	CREATE UNIQUE INDEX idx_papers_arxiv_id ON papers(arxiv_id)
		WHERE arxiv_id IS NOT NULL AND deleted_at IS NULL;
`

// papersFTS keeps the full-text index in lockstep with the papers table.
// External-content FTS5 plus triggers means every insert/update/delete is
// mirrored immediately; a full rebuild stays available via RebuildFTS.
const papersFTS = `
	CREATE VIRTUAL TABLE papers_fts USING fts5(
		title, abstract, authors, content='papers', content_rowid='rowid'
	);

	CREATE TRIGGER papers_fts_insert AFTER INSERT ON papers BEGIN
		INSERT INTO papers_fts(rowid, title, abstract, authors)
		VALUES (new.rowid, new.title, COALESCE(new.abstract, ''), COALESCE(new.authors, ''));
	END;

	CREATE TRIGGER papers_fts_delete AFTER DELETE ON papers BEGIN
		INSERT INTO papers_fts(papers_fts, rowid, title, abstract, authors)
		VALUES ('delete', old.rowid, old.title, COALESCE(old.abstract, ''), COALESCE(old.authors, ''));
	END;

	CREATE TRIGGER papers_fts_update AFTER UPDATE ON papers BEGIN
		INSERT INTO papers_fts(papers_fts, rowid, title, abstract, authors)
		VALUES ('delete', old.rowid, old.title, COALESCE(old.abstract, ''), COALESCE(old.authors, ''));
		INSERT INTO papers_fts(rowid, title, abstract, authors)
		VALUES (new.rowid, new.title, COALESCE(new.abstract, ''), COALESCE(new.authors, ''));
	END;
`

// migratePapersSchema upgrades a legacy papers table in place, or creates
// the table fresh, then adds the FTS index and relocates any legacy
// flat-layout PDFs into the directory-per-key layout.
func migratePapersSchema(tx *sql.Tx, ctx MigrationContext) error {
	exists, err := tableExists(tx, "papers")
	if err != nil {
		return err
	}

	if exists {
		if err := upgradeLegacyTable(tx); err != nil {
			return fmt.Errorf("upgrading legacy table: %w", err)
		}
		if err := backfillDerivedFields(tx); err != nil {
			return fmt.Errorf("backfilling derived fields: %w", err)
		}
	} else {
		if _, err := tx.Exec(fmt.Sprintf(papersDDL, "papers")); err != nil {
			return fmt.Errorf("creating papers table: %w", err)
		}
		if _, err := tx.Exec(papersIndexes); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
	}

	if _, err := tx.Exec(papersFTS); err != nil {
		return fmt.Errorf("creating FTS index: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO papers_fts(rowid, title, abstract, authors)
		SELECT rowid, title, COALESCE(abstract, ''), COALESCE(authors, '')
		FROM papers`); err != nil {
		return fmt.Errorf("populating FTS index: %w", err)
	}

	if err := migrateFlatFiles(tx, ctx.FilesDir); err != nil {
		return fmt.Errorf("migrating flat file layout: %w", err)
	}
	return nil
}

func tableExists(tx *sql.Tx, name string) (bool, error) {
	var found int
	err := tx.QueryRow(
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// upgradeLegacyTable rewrites the pre-versioning papers table (single
// source_key column, flat tags/collections, updated_at/source_modified
// timestamps) into the current shape.
func upgradeLegacyTable(tx *sql.Tx) error {
	if _, err := tx.Exec(fmt.Sprintf(papersDDL, "papers_new")); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO papers_new (
			citation_key, item_type, title, authors, year,
			journal, volume, issue, pages, doi, url, abstract,
			publisher, book_title, source_keys, source_tags,
			source_collections, pdf_path, imported_at, synced_at
		)
		SELECT
			citation_key, item_type, title, authors, year,
			journal, volume, issue, pages, doi, url, abstract,
			publisher, book_title, json_array(source_key), tags,
			collections, pdf_path, updated_at, source_modified
		FROM papers`); err != nil {
		return err
	}
	if _, err := tx.Exec("DROP TABLE papers"); err != nil {
		return err
	}
	if _, err := tx.Exec("ALTER TABLE papers_new RENAME TO papers"); err != nil {
		return err
	}
	if _, err := tx.Exec(papersIndexes); err != nil {
		return err
	}
	return nil
}

// backfillDerivedFields fills arxiv_id and venue from existing raw fields.
// Best effort: rows with nothing derivable are left untouched.
func backfillDerivedFields(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT citation_key, url, doi, journal, book_title FROM papers")
	if err != nil {
		return err
	}
	defer rows.Close()

	type derived struct {
		key     string
		arxivID string
		venue   string
	}
	var updates []derived
	for rows.Next() {
		var key string
		var url, doi, journal, bookTitle sql.NullString
		if err := rows.Scan(&key, &url, &doi, &journal, &bookTitle); err != nil {
			return err
		}
		d := derived{
			key:     key,
			arxivID: paper.ExtractArxivID(url.String, doi.String),
			venue:   paper.NormalizeVenue(journal.String, bookTitle.String),
		}
		if d.arxivID != "" || d.venue != "" {
			updates = append(updates, d)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range updates {
		var sets []string
		var args []any
		if d.arxivID != "" {
			sets = append(sets, "arxiv_id = ?")
			args = append(args, d.arxivID)
		}
		if d.venue != "" {
			sets = append(sets, "venue = ?")
			args = append(args, d.venue)
		}
		args = append(args, d.key)
		query := fmt.Sprintf("UPDATE papers SET %s WHERE citation_key = ?", strings.Join(sets, ", "))
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}
	return nil
}

// migrateFlatFiles moves legacy <filesDir>/<key>.pdf files into
// <filesDir>/<key>/paper.pdf and repoints the stored paths. File system
// moves cannot roll back with the transaction, so this runs last in the
// migration step.
func migrateFlatFiles(tx *sql.Tx, filesDir string) error {
	if filesDir == "" {
		return nil
	}
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".pdf")
		dir := filepath.Join(filesDir, stem)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(filesDir, entry.Name()), filepath.Join(dir, CanonicalFileName)); err != nil {
			return err
		}
		newPath := stem + "/" + CanonicalFileName
		if _, err := tx.Exec(
			"UPDATE papers SET pdf_path = ? WHERE pdf_path = ?", newPath, entry.Name(),
		); err != nil {
			return err
		}
	}
	return nil
}
