package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Joey-Jiao/strata/internal/paper"
)

// Repository provides access to paper records. All lookups operate on the
// active (non-soft-deleted) partition unless noted. Each call is atomic on
// its own; the sync engine brackets multi-step work per item.
type Repository struct {
	db *DB
}

// NewRepository creates a Repository over an initialized DB.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// selectPaperFields is the standard column list for SELECT queries.
const selectPaperFields = `citation_key, item_type, title, authors, year,
	journal, volume, issue, pages, doi, url, abstract,
	publisher, book_title, source_keys, source_tags, source_collections,
	pdf_path, arxiv_id, venue, imported_at, synced_at, deleted_at`

// selectPaperFieldsQualified is the same list with the "p." alias, for
// queries that join the FTS table (its title/abstract/authors columns
// would otherwise be ambiguous).
const selectPaperFieldsQualified = `p.citation_key, p.item_type, p.title, p.authors, p.year,
	p.journal, p.volume, p.issue, p.pages, p.doi, p.url, p.abstract,
	p.publisher, p.book_title, p.source_keys, p.source_tags, p.source_collections,
	p.pdf_path, p.arxiv_id, p.venue, p.imported_at, p.synced_at, p.deleted_at`

func now() time.Time {
	return time.Now().UTC()
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (*paper.Paper, error) {
	var p paper.Paper
	var itemType, authors, journal, volume, issue, pages sql.NullString
	var doi, url, abstract, publisher, bookTitle sql.NullString
	var sourceKeys, sourceTags, sourceCollections sql.NullString
	var pdfPath, arxivID, venue sql.NullString
	var year sql.NullInt64
	var importedAt, syncedAt, deletedAt sql.NullString

	err := s.Scan(
		&p.CitationKey, &itemType, &p.Title, &authors, &year,
		&journal, &volume, &issue, &pages, &doi, &url, &abstract,
		&publisher, &bookTitle, &sourceKeys, &sourceTags, &sourceCollections,
		&pdfPath, &arxivID, &venue, &importedAt, &syncedAt, &deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.ItemType = itemType.String
	if p.ItemType == "" {
		p.ItemType = "article"
	}
	p.Authors = paper.ParseAuthors(authors.String)
	p.Year = int(year.Int64)
	p.Journal = journal.String
	p.Volume = volume.String
	p.Issue = issue.String
	p.Pages = pages.String
	p.DOI = doi.String
	p.URL = url.String
	p.Abstract = abstract.String
	p.Publisher = publisher.String
	p.BookTitle = bookTitle.String
	p.SourceKeys = paper.ParseStringList(sourceKeys.String)
	p.SourceTags = paper.ParseStringList(sourceTags.String)
	p.SourceCollections = paper.ParseStringList(sourceCollections.String)
	p.PDFPath = pdfPath.String
	p.ArxivID = arxivID.String
	p.Venue = venue.String
	p.ImportedAt = parseTime(importedAt)
	p.SyncedAt = parseTime(syncedAt)
	if t := parseTime(deletedAt); !t.IsZero() {
		p.DeletedAt = &t
	}
	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			papers = append(papers, *p)
		}
	}
	return papers, rows.Err()
}

// Get returns the active paper at the citation key, or nil.
func (r *Repository) Get(citationKey string) (*paper.Paper, error) {
	row := r.db.Conn().QueryRow(
		"SELECT "+selectPaperFields+" FROM papers WHERE citation_key = ? AND deleted_at IS NULL",
		citationKey,
	)
	return scanPaper(row)
}

// GetBySourceKey returns the active paper tracking the given provenance
// key, or nil.
func (r *Repository) GetBySourceKey(sourceKey string) (*paper.Paper, error) {
	row := r.db.Conn().QueryRow(`
		SELECT `+selectPaperFields+`
		FROM papers p, json_each(p.source_keys) j
		WHERE j.value = ? AND p.deleted_at IS NULL`, sourceKey)
	return scanPaper(row)
}

// FindByDOI returns the active paper with the exact DOI, or nil.
func (r *Repository) FindByDOI(doi string) (*paper.Paper, error) {
	row := r.db.Conn().QueryRow(
		"SELECT "+selectPaperFields+" FROM papers WHERE doi = ? AND deleted_at IS NULL", doi,
	)
	return scanPaper(row)
}

// FindByArxivID returns the active paper with the exact arXiv id, or nil.
func (r *Repository) FindByArxivID(arxivID string) (*paper.Paper, error) {
	row := r.db.Conn().QueryRow(
		"SELECT "+selectPaperFields+" FROM papers WHERE arxiv_id = ? AND deleted_at IS NULL", arxivID,
	)
	return scanPaper(row)
}

// FindByTitleAuthorYear matches exact title and year with a substring
// match on the author column. Last-resort duplicate heuristic; best
// effort, common titles can produce false positives.
func (r *Repository) FindByTitleAuthorYear(title, authorLast string, year int) (*paper.Paper, error) {
	row := r.db.Conn().QueryRow(`
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE title = ? AND authors LIKE ? AND year = ? AND deleted_at IS NULL`,
		title, "%"+authorLast+"%", year)
	return scanPaper(row)
}

// ListAll returns all active papers, newest year first.
func (r *Repository) ListAll() ([]paper.Paper, error) {
	rows, err := r.db.Conn().Query(
		"SELECT " + selectPaperFields + " FROM papers WHERE deleted_at IS NULL ORDER BY year DESC, citation_key",
	)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// ListByCollection returns active papers in the given collection path.
func (r *Repository) ListByCollection(collection string) ([]paper.Paper, error) {
	rows, err := r.db.Conn().Query(`
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE EXISTS (SELECT 1 FROM json_each(source_collections) j WHERE j.value = ?)
		  AND deleted_at IS NULL
		ORDER BY year DESC, citation_key`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing by collection: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// Filters are the combinable predicates for Find. Zero values mean
// "not filtered".
type Filters struct {
	Query    string // free text, matched via the FTS index
	DOI      string // exact
	ArxivID  string // exact
	YearFrom int
	YearTo   int
	Author   string // substring on the authors column
	Venue    string // exact
	Tag      string // membership in source_tags
	SortBy   string // "relevance" (needs Query) or "year"
	Limit    int
	Offset   int
}

// Find returns papers matching all supplied filters plus the total match
// count before pagination. Relevance ordering without query text falls
// back to year ordering.
func (r *Repository) Find(f Filters) ([]paper.Paper, int, error) {
	conditions := []string{"p.deleted_at IS NULL"}
	var args []any

	useFTS := f.Query != ""
	fromClause := "papers p"
	if useFTS {
		fromClause = "papers p JOIN papers_fts ON papers_fts.rowid = p.rowid"
		conditions = append(conditions, "papers_fts MATCH ?")
		args = append(args, f.Query)
	}

	if f.DOI != "" {
		conditions = append(conditions, "p.doi = ?")
		args = append(args, f.DOI)
	}
	if f.ArxivID != "" {
		conditions = append(conditions, "p.arxiv_id = ?")
		args = append(args, f.ArxivID)
	}
	if f.YearFrom != 0 {
		conditions = append(conditions, "p.year >= ?")
		args = append(args, f.YearFrom)
	}
	if f.YearTo != 0 {
		conditions = append(conditions, "p.year <= ?")
		args = append(args, f.YearTo)
	}
	if f.Author != "" {
		conditions = append(conditions, "p.authors LIKE ?")
		args = append(args, "%"+f.Author+"%")
	}
	if f.Venue != "" {
		conditions = append(conditions, "p.venue = ?")
		args = append(args, f.Venue)
	}
	if f.Tag != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(p.source_tags) j WHERE j.value = ?)")
		args = append(args, f.Tag)
	}

	where := conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}

	order := "ORDER BY p.year DESC, p.citation_key"
	if f.SortBy == "relevance" && useFTS {
		order = "ORDER BY papers_fts.rank"
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", fromClause, where)
	if err := r.db.Conn().QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting matches: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s %s LIMIT ? OFFSET ?",
		selectPaperFieldsQualified, fromClause, where, order,
	)
	rows, err := r.db.Conn().Query(query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("finding papers: %w", err)
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// Insert adds a new paper row.
func (r *Repository) Insert(p *paper.Paper) error {
	_, err := r.db.Conn().Exec(`
		INSERT INTO papers (
			citation_key, item_type, title, authors, year,
			journal, volume, issue, pages, doi, url, abstract,
			publisher, book_title, source_keys, source_tags, source_collections,
			pdf_path, arxiv_id, venue, imported_at, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CitationKey, p.ItemType, p.Title, paper.MarshalAuthors(p.Authors), nullInt(p.Year),
		nullString(p.Journal), nullString(p.Volume), nullString(p.Issue), nullString(p.Pages),
		nullString(p.DOI), nullString(p.URL), nullString(p.Abstract),
		nullString(p.Publisher), nullString(p.BookTitle),
		paper.MarshalStringList(p.SourceKeys), paper.MarshalStringList(p.SourceTags),
		paper.MarshalStringList(p.SourceCollections),
		nullString(p.PDFPath), nullString(p.ArxivID), nullString(p.Venue),
		timeValue(p.ImportedAt), timeValue(p.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", p.CitationKey, err)
	}
	return nil
}

// Update rewrites all mutable columns of a paper. imported_at and
// deleted_at are never touched here.
func (r *Repository) Update(p *paper.Paper) error {
	_, err := r.db.Conn().Exec(`
		UPDATE papers SET
			item_type = ?, title = ?, authors = ?, year = ?,
			journal = ?, volume = ?, issue = ?, pages = ?, doi = ?, url = ?,
			abstract = ?, publisher = ?, book_title = ?, source_keys = ?,
			source_tags = ?, source_collections = ?, pdf_path = ?,
			arxiv_id = ?, venue = ?, synced_at = ?
		WHERE citation_key = ?`,
		p.ItemType, p.Title, paper.MarshalAuthors(p.Authors), nullInt(p.Year),
		nullString(p.Journal), nullString(p.Volume), nullString(p.Issue), nullString(p.Pages),
		nullString(p.DOI), nullString(p.URL), nullString(p.Abstract),
		nullString(p.Publisher), nullString(p.BookTitle),
		paper.MarshalStringList(p.SourceKeys), paper.MarshalStringList(p.SourceTags),
		paper.MarshalStringList(p.SourceCollections), nullString(p.PDFPath),
		nullString(p.ArxivID), nullString(p.Venue), timeValue(p.SyncedAt),
		p.CitationKey,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", p.CitationKey, err)
	}
	return nil
}

// Upsert inserts the paper, or updates the existing row at its key while
// preserving the original imported_at.
func (r *Repository) Upsert(p *paper.Paper) error {
	existing, err := r.Get(p.CitationKey)
	if err != nil {
		return err
	}
	if existing != nil {
		p.ImportedAt = existing.ImportedAt
		return r.Update(p)
	}
	return r.Insert(p)
}

// Delete hard-deletes a row (including soft-deleted ones). Returns true
// when a row was removed.
func (r *Repository) Delete(citationKey string) (bool, error) {
	res, err := r.db.Conn().Exec("DELETE FROM papers WHERE citation_key = ?", citationKey)
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", citationKey, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SoftDelete marks a paper inactive. Idempotent: returns false when the
// paper is already deleted or missing.
func (r *Repository) SoftDelete(citationKey string) (bool, error) {
	res, err := r.db.Conn().Exec(
		"UPDATE papers SET deleted_at = ? WHERE citation_key = ? AND deleted_at IS NULL",
		timeValue(now()), citationKey,
	)
	if err != nil {
		return false, fmt.Errorf("soft-deleting %s: %w", citationKey, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateCitationKey repoints a paper's primary key and, when newPDFPath is
// non-empty, its stored PDF path, in one transaction.
func (r *Repository) UpdateCitationKey(oldKey, newKey, newPDFPath string) error {
	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("beginning rename: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE papers SET citation_key = ? WHERE citation_key = ?", newKey, oldKey,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("renaming %s to %s: %w", oldKey, newKey, err)
	}
	if newPDFPath != "" {
		if _, err := tx.Exec(
			"UPDATE papers SET pdf_path = ? WHERE citation_key = ?", newPDFPath, newKey,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating pdf path for %s: %w", newKey, err)
		}
	}
	return tx.Commit()
}

// AddSourceKey appends a provenance key to a paper's source set.
// Idempotent: a key already present is left alone.
func (r *Repository) AddSourceKey(citationKey, sourceKey string) error {
	p, err := r.Get(citationKey)
	if err != nil {
		return err
	}
	if p == nil || p.HasSourceKey(sourceKey) {
		return nil
	}
	p.SourceKeys = append(p.SourceKeys, sourceKey)
	_, err = r.db.Conn().Exec(
		"UPDATE papers SET source_keys = ? WHERE citation_key = ?",
		paper.MarshalStringList(p.SourceKeys), citationKey,
	)
	if err != nil {
		return fmt.Errorf("adding source key to %s: %w", citationKey, err)
	}
	return nil
}

// RemoveSourceKey drops a provenance key from a paper's source set.
// Returns the number of keys remaining.
func (r *Repository) RemoveSourceKey(citationKey, sourceKey string) (int, error) {
	p, err := r.Get(citationKey)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, nil
	}
	var remaining []string
	for _, k := range p.SourceKeys {
		if k != sourceKey {
			remaining = append(remaining, k)
		}
	}
	if len(remaining) == len(p.SourceKeys) {
		return len(remaining), nil
	}
	_, err = r.db.Conn().Exec(
		"UPDATE papers SET source_keys = ? WHERE citation_key = ?",
		paper.MarshalStringList(remaining), citationKey,
	)
	if err != nil {
		return 0, fmt.Errorf("removing source key from %s: %w", citationKey, err)
	}
	return len(remaining), nil
}

// ClearPDFPath clears a paper's stored PDF path.
func (r *Repository) ClearPDFPath(citationKey string) error {
	_, err := r.db.Conn().Exec(
		"UPDATE papers SET pdf_path = NULL WHERE citation_key = ?", citationKey,
	)
	if err != nil {
		return fmt.Errorf("clearing pdf path for %s: %w", citationKey, err)
	}
	return nil
}

// ListSourceKeys returns every provenance key held by an active paper.
func (r *Repository) ListSourceKeys() (map[string]bool, error) {
	rows, err := r.db.Conn().Query(`
		SELECT j.value
		FROM papers p, json_each(p.source_keys) j
		WHERE p.deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("listing source keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// ListAllKeys returns the set of active citation keys.
func (r *Repository) ListAllKeys() (map[string]bool, error) {
	return r.listKeys("SELECT citation_key FROM papers WHERE deleted_at IS NULL")
}

// ListClaimedKeys returns every citation key present in the table,
// soft-deleted rows included. The primary key constraint spans both
// partitions, so any new key must avoid this whole set.
func (r *Repository) ListClaimedKeys() (map[string]bool, error) {
	return r.listKeys("SELECT citation_key FROM papers")
}

func (r *Repository) listKeys(query string) (map[string]bool, error) {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing citation keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// ListCollections returns the sorted union of collection paths across
// active papers.
func (r *Repository) ListCollections() ([]string, error) {
	return r.listJSONColumn("source_collections")
}

// ListTags returns the sorted union of tags across active papers.
func (r *Repository) ListTags() ([]string, error) {
	return r.listJSONColumn("source_tags")
}

func (r *Repository) listJSONColumn(column string) ([]string, error) {
	rows, err := r.db.Conn().Query(fmt.Sprintf(`
		SELECT DISTINCT j.value
		FROM papers p, json_each(p.%s) j
		WHERE p.deleted_at IS NULL
		ORDER BY j.value`, column))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Stats summarizes the active partition.
type Stats struct {
	Total      int         `json:"total"`
	YearMin    int         `json:"year_min,omitempty"`
	YearMax    int         `json:"year_max,omitempty"`
	ByYear     map[int]int `json:"by_year,omitempty"`
	PDFCount   int         `json:"pdf_count"`
	NoPDFCount int         `json:"no_pdf_count"`
	LastSync   time.Time   `json:"last_sync,omitempty"`
}

// GetStats returns counts, the year histogram, PDF coverage, and the most
// recent sync time.
func (r *Repository) GetStats() (*Stats, error) {
	conn := r.db.Conn()
	stats := &Stats{ByYear: make(map[int]int)}

	if err := conn.QueryRow(
		"SELECT COUNT(*) FROM papers WHERE deleted_at IS NULL",
	).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}

	var yearMin, yearMax sql.NullInt64
	if err := conn.QueryRow(
		"SELECT MIN(year), MAX(year) FROM papers WHERE deleted_at IS NULL",
	).Scan(&yearMin, &yearMax); err != nil {
		return nil, fmt.Errorf("reading year range: %w", err)
	}
	stats.YearMin = int(yearMin.Int64)
	stats.YearMax = int(yearMax.Int64)

	rows, err := conn.Query(`
		SELECT year, COUNT(*)
		FROM papers
		WHERE year IS NOT NULL AND deleted_at IS NULL
		GROUP BY year`)
	if err != nil {
		return nil, fmt.Errorf("reading year histogram: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year, count int
		if err := rows.Scan(&year, &count); err != nil {
			return nil, err
		}
		stats.ByYear[year] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := conn.QueryRow(
		"SELECT COUNT(*) FROM papers WHERE pdf_path IS NOT NULL AND deleted_at IS NULL",
	).Scan(&stats.PDFCount); err != nil {
		return nil, fmt.Errorf("counting pdfs: %w", err)
	}
	stats.NoPDFCount = stats.Total - stats.PDFCount

	var lastSync sql.NullString
	if err := conn.QueryRow(
		"SELECT MAX(synced_at) FROM papers WHERE deleted_at IS NULL",
	).Scan(&lastSync); err != nil {
		return nil, fmt.Errorf("reading last sync: %w", err)
	}
	stats.LastSync = parseTime(lastSync)

	return stats, nil
}

// RebuildFTS rebuilds the full-text index from the papers table. Used
// after bulk rewrites; the triggers keep it current otherwise.
func (r *Repository) RebuildFTS() error {
	if _, err := r.db.Conn().Exec("INSERT INTO papers_fts(papers_fts) VALUES('rebuild')"); err != nil {
		return fmt.Errorf("rebuilding FTS index: %w", err)
	}
	return nil
}

// DeleteAll hard-deletes every row (active and soft-deleted) and returns
// the number removed.
func (r *Repository) DeleteAll() (int, error) {
	res, err := r.db.Conn().Exec("DELETE FROM papers")
	if err != nil {
		return 0, fmt.Errorf("deleting all papers: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
