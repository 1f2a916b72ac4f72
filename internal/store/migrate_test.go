package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/Joey-Jiao/strata/internal/paper"
)

func TestMigrations_Fresh(t *testing.T) {
	db := newTestDB(t)

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("SchemaVersion() = %d, want 1", version)
	}

	// Re-initializing is a no-op
	if err := db.Initialize(MigrationContext{}); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
}

// legacySchema is the pre-versioning table shape: single source_key
// column, flat tags/collections, no arxiv_id/venue/deleted_at.
const legacySchema = `
	CREATE TABLE papers (
		citation_key    TEXT PRIMARY KEY,
		item_type       TEXT,
		title           TEXT NOT NULL,
		authors         TEXT,
		year            INTEGER,
		journal         TEXT,
		volume          TEXT,
		issue           TEXT,
		pages           TEXT,
		doi             TEXT,
		url             TEXT,
		abstract        TEXT,
		publisher       TEXT,
		book_title      TEXT,
		source_key      TEXT,
		tags            TEXT,
		collections     TEXT,
		pdf_path        TEXT,
		updated_at      TEXT,
		source_modified TEXT
	)`

func createLegacyStore(t *testing.T, dbPath string) {
	t.Helper()
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening raw db: %v", err)
	}
	defer raw.Close()

	if _, err := raw.Exec(legacySchema); err != nil {
		t.Fatalf("creating legacy schema: %v", err)
	}
	authors := paper.MarshalAuthors([]paper.Author{{First: "John", Last: "Smith", Role: "author"}})
	if _, err := raw.Exec(`
		INSERT INTO papers (
			citation_key, item_type, title, authors, year, journal,
			url, source_key, tags, collections, pdf_path, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"smith2017attention", "article", "Attention Is All You Need", authors, 2017,
		"Advances in Neural Information Processing Systems",
		"https://arxiv.org/abs/1706.03762", "ABCD1234",
		`["ml"]`, `["Reading"]`, "smith2017attention.pdf",
		"2023-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("inserting legacy row: %v", err)
	}
}

func TestMigrations_LegacyUpgrade(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "papers.db")
	filesDir := filepath.Join(dir, "files")

	createLegacyStore(t, dbPath)

	// Legacy flat file layout: <key>.pdf directly under the files dir.
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filesDir, "smith2017attention.pdf"), []byte("pdf"), 0644); err != nil {
		t.Fatalf("writing flat pdf: %v", err)
	}

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if err := db.Initialize(MigrationContext{FilesDir: filesDir}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	repo := NewRepository(db)
	p, err := repo.Get("smith2017attention")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p == nil {
		t.Fatal("legacy paper missing after upgrade")
	}

	// source_key becomes a one-element provenance set
	if len(p.SourceKeys) != 1 || p.SourceKeys[0] != "ABCD1234" {
		t.Errorf("SourceKeys = %v, want [ABCD1234]", p.SourceKeys)
	}
	if len(p.SourceTags) != 1 || p.SourceTags[0] != "ml" {
		t.Errorf("SourceTags = %v", p.SourceTags)
	}

	// Derived fields backfilled from raw url/journal
	if p.ArxivID != "1706.03762" {
		t.Errorf("ArxivID = %q, want 1706.03762", p.ArxivID)
	}
	if p.Venue != "NeurIPS" {
		t.Errorf("Venue = %q, want NeurIPS", p.Venue)
	}

	// Flat PDF relocated into the per-key layout
	if p.PDFPath != "smith2017attention/paper.pdf" {
		t.Errorf("PDFPath = %q", p.PDFPath)
	}
	if _, err := os.Stat(filepath.Join(filesDir, "smith2017attention", CanonicalFileName)); err != nil {
		t.Errorf("relocated pdf missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filesDir, "smith2017attention.pdf")); !os.IsNotExist(err) {
		t.Error("flat pdf should have been moved")
	}

	// FTS works over upgraded rows
	papers, _, err := repo.Find(Filters{Query: "attention"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(papers) != 1 {
		t.Errorf("Find(attention) = %v", papers)
	}

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("SchemaVersion() = %d, want 1", version)
	}
}
