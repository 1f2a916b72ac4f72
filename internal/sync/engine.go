// Package sync reconciles the external Zotero library into the local
// paper store and its PDF file store.
package sync

import (
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/Joey-Jiao/strata/internal/citekey"
	"github.com/Joey-Jiao/strata/internal/paper"
	"github.com/Joey-Jiao/strata/internal/store"
	"github.com/Joey-Jiao/strata/internal/zotero"
)

// ErrSyncRunning is returned when a sync run is already in progress.
// Debounced watcher triggers can race a long-running sync; the guard
// keeps a single writer at a time.
var ErrSyncRunning = errors.New("sync already in progress")

// ItemSource lists the current items of the external library.
type ItemSource interface {
	ListItems() ([]zotero.Item, error)
}

// PDFLocator resolves an item's PDF attachment to an absolute path.
// Returns "" when the item has no PDF on disk.
type PDFLocator interface {
	PDFPath(item zotero.Item) string
}

// zoteroTypeMap maps Zotero item types to stored entry types.
var zoteroTypeMap = map[string]string{
	"journalArticle":  "article",
	"book":            "book",
	"bookSection":     "incollection",
	"conferencePaper": "inproceedings",
	"thesis":          "thesis",
	"report":          "techreport",
	"preprint":        "article",
	"manuscript":      "article",
}

// Engine reconciles source items into the repository and file store.
type Engine struct {
	source  ItemSource
	locator PDFLocator
	repo    *store.Repository
	files   *store.Files
	keygen  *citekey.Generator

	mu gosync.Mutex // run-in-progress guard
}

// NewEngine wires a sync engine. stopWords feeds citation key generation.
func NewEngine(source ItemSource, locator PDFLocator, repo *store.Repository, files *store.Files, stopWords map[string]bool) *Engine {
	return &Engine{
		source:  source,
		locator: locator,
		repo:    repo,
		files:   files,
		keygen:  citekey.NewGenerator(stopWords),
	}
}

// Result summarizes a sync run.
type Result struct {
	Synced   int      `json:"synced"`             // items reconciled
	Imported int      `json:"imported"`           // new papers inserted
	Renamed  int      `json:"renamed"`            // citation key cascades
	Deleted  int      `json:"deleted"`            // papers soft-deleted as orphans
	Warnings []string `json:"warnings,omitempty"` // non-fatal per-item problems
}

// Sync reconciles the full current item set. Each item commits on its
// own, so a failed run leaves prior items durable and rerunning sync
// picks up where it stopped. Returns ErrSyncRunning when another run
// holds the guard.
func (e *Engine) Sync() (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer e.mu.Unlock()

	items, err := e.source.ListItems()
	if err != nil {
		return nil, fmt.Errorf("reading zotero library: %w", err)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].Key < items[b].Key })

	zoteroKeys := make(map[string]bool, len(items))
	for _, item := range items {
		zoteroKeys[item.Key] = true
	}

	result := &Result{}
	if err := e.removeOrphans(zoteroKeys, result); err != nil {
		return result, err
	}

	keyMap := e.keygen.GenerateAll(items)
	// Soft-deleted rows keep their citation key, and the primary key
	// spans both partitions, so the collision set must cover them too.
	allKeys, err := e.repo.ListClaimedKeys()
	if err != nil {
		return result, err
	}

	for _, item := range items {
		if err := e.reconcileItem(item, keyMap[item.Key], allKeys, result); err != nil {
			return result, fmt.Errorf("syncing item %s: %w", item.Key, err)
		}
		result.Synced++
	}

	if err := e.cleanup(); err != nil {
		return result, err
	}
	if err := e.repo.RebuildFTS(); err != nil {
		return result, err
	}
	return result, nil
}

// removeOrphans drops provenance keys that vanished from the source and
// soft-deletes papers whose provenance set empties. A paper never
// outlives all of its external origins.
func (e *Engine) removeOrphans(zoteroKeys map[string]bool, result *Result) error {
	sourceKeys, err := e.repo.ListSourceKeys()
	if err != nil {
		return err
	}
	var orphans []string
	for k := range sourceKeys {
		if !zoteroKeys[k] {
			orphans = append(orphans, k)
		}
	}
	sort.Strings(orphans)

	for _, sourceKey := range orphans {
		p, err := e.repo.GetBySourceKey(sourceKey)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		remaining, err := e.repo.RemoveSourceKey(p.CitationKey, sourceKey)
		if err != nil {
			return err
		}
		if remaining == 0 {
			deleted, err := e.repo.SoftDelete(p.CitationKey)
			if err != nil {
				return err
			}
			if deleted {
				result.Deleted++
			}
		}
	}
	return nil
}

// reconcileItem brings one source item into the store: provenance lookup,
// duplicate merge, citation key continuity, field refresh, PDF sync, and
// a single upsert.
func (e *Engine) reconcileItem(item zotero.Item, targetKey string, allKeys map[string]bool, result *Result) error {
	existing, err := e.repo.GetBySourceKey(item.Key)
	if err != nil {
		return err
	}

	p := e.convertItem(item, targetKey)

	if existing == nil {
		duplicate, err := e.findDuplicate(p)
		if err != nil {
			return err
		}
		if duplicate != nil {
			if err := e.repo.AddSourceKey(duplicate.CitationKey, item.Key); err != nil {
				return err
			}
			existing = duplicate
		}
	}

	if existing != nil {
		switch {
		case targetKey != existing.CitationKey && !allKeys[targetKey]:
			if err := e.cascadeRename(existing.CitationKey, targetKey); err != nil {
				return err
			}
			delete(allKeys, existing.CitationKey)
			allKeys[targetKey] = true
			result.Renamed++
		case targetKey != existing.CitationKey:
			// Target key is claimed by another active paper; the
			// existing key stays (stability wins over recomputation).
			targetKey = existing.CitationKey
		}
		p.CitationKey = targetKey
		p.ImportedAt = existing.ImportedAt
		p.SourceKeys = appendSourceKey(existing.SourceKeys, item.Key)
		if e.files.Exists(targetKey) {
			// Never overwrite an already-stored file on resync.
			p.PDFPath = e.files.RelPath(targetKey)
		} else {
			p.PDFPath = e.syncPDF(item, targetKey, result)
		}
	} else {
		if allKeys[targetKey] {
			// The batch-assigned key is held by a persisted row
			// (possibly soft-deleted); widen until free.
			targetKey = e.keygen.GenerateUnique(item, allKeys)
			p.CitationKey = targetKey
		}
		p.ImportedAt = time.Now().UTC()
		p.PDFPath = e.syncPDF(item, targetKey, result)
		allKeys[targetKey] = true
		result.Imported++
	}

	return e.repo.Upsert(p)
}

// cascadeRename renames the file store directory first, then repoints the
// database row (and its stored PDF path) in one commit.
func (e *Engine) cascadeRename(oldKey, newKey string) error {
	newPDF, err := e.files.Rename(oldKey, newKey)
	if err != nil {
		return err
	}
	return e.repo.UpdateCitationKey(oldKey, newKey, newPDF)
}

// findDuplicate looks for an existing owner of the same work, in priority
// order: DOI exact, arXiv id exact, then the title/author/year heuristic.
func (e *Engine) findDuplicate(p *paper.Paper) (*paper.Paper, error) {
	if p.DOI != "" {
		existing, err := e.repo.FindByDOI(p.DOI)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	if p.ArxivID != "" {
		existing, err := e.repo.FindByArxivID(p.ArxivID)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	if first := p.FirstAuthor(); p.Title != "" && first != nil && p.Year != 0 {
		return e.repo.FindByTitleAuthorYear(p.Title, first.Last, p.Year)
	}
	return nil, nil
}

// syncPDF locates and stores the item's PDF. Copy failures are recorded
// as warnings, never fatal: the paper just ends the run without a PDF.
func (e *Engine) syncPDF(item zotero.Item, citationKey string, result *Result) string {
	sourcePath := e.locator.PDFPath(item)
	if sourcePath == "" {
		return ""
	}
	relPath, err := e.files.Store(sourcePath, citationKey)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: storing pdf: %v", citationKey, err))
		return ""
	}
	return relPath
}

// convertItem maps a source item to a paper. The source is authoritative
// for content fields; provenance and import time are layered on by the
// caller.
func (e *Engine) convertItem(item zotero.Item, citationKey string) *paper.Paper {
	itemType, ok := zoteroTypeMap[item.ItemType]
	if !ok {
		itemType = "misc"
	}
	authors := make([]paper.Author, len(item.Creators))
	for i, c := range item.Creators {
		authors[i] = paper.Author{First: c.First, Last: c.Last, Role: c.Role}
	}
	return &paper.Paper{
		CitationKey:       citationKey,
		ItemType:          itemType,
		Title:             item.Title,
		Authors:           authors,
		Year:              item.Year(),
		Journal:           item.Journal,
		Volume:            item.Volume,
		Issue:             item.Issue,
		Pages:             item.Pages,
		DOI:               item.DOI,
		URL:               item.URL,
		Abstract:          item.Abstract,
		Publisher:         item.Publisher,
		BookTitle:         item.BookTitle,
		SourceKeys:        []string{item.Key},
		SourceTags:        item.Tags,
		SourceCollections: item.Collections,
		ArxivID:           paper.ExtractArxivID(item.URL, item.DOI),
		Venue:             paper.NormalizeVenue(item.Journal, item.BookTitle),
		SyncedAt:          time.Now().UTC(),
	}
}

// cleanup removes file store directories with no active paper and clears
// stored PDF paths whose file vanished.
func (e *Engine) cleanup() error {
	dbKeys, err := e.repo.ListAllKeys()
	if err != nil {
		return err
	}
	fileKeys, err := e.files.ListKeys()
	if err != nil {
		return err
	}
	for key := range fileKeys {
		if !dbKeys[key] {
			if _, err := e.files.Delete(key); err != nil {
				return err
			}
		}
	}

	papers, err := e.repo.ListAll()
	if err != nil {
		return err
	}
	for _, p := range papers {
		if p.PDFPath != "" && !e.files.Exists(p.CitationKey) {
			if err := e.repo.ClearPDFPath(p.CitationKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeepSync rebuilds the store from scratch: every paper and stored file
// is removed, then the full item set is inserted with freshly generated
// keys. No merging, no key continuity.
func (e *Engine) DeepSync() (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer e.mu.Unlock()

	items, err := e.source.ListItems()
	if err != nil {
		return nil, fmt.Errorf("reading zotero library: %w", err)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].Key < items[b].Key })

	result := &Result{}
	if result.Deleted, err = e.repo.DeleteAll(); err != nil {
		return result, err
	}
	if _, err := e.files.DeleteAll(); err != nil {
		return result, err
	}

	keyMap := e.keygen.GenerateAll(items)
	for _, item := range items {
		citationKey := keyMap[item.Key]
		p := e.convertItem(item, citationKey)
		p.ImportedAt = time.Now().UTC()
		p.PDFPath = e.syncPDF(item, citationKey, result)
		if err := e.repo.Insert(p); err != nil {
			return result, fmt.Errorf("inserting %s: %w", citationKey, err)
		}
		result.Synced++
		result.Imported++
	}
	if err := e.repo.RebuildFTS(); err != nil {
		return result, err
	}
	return result, nil
}

// ListNewItems returns source items not yet tracked by any active paper.
func (e *Engine) ListNewItems() ([]zotero.Item, error) {
	items, err := e.source.ListItems()
	if err != nil {
		return nil, fmt.Errorf("reading zotero library: %w", err)
	}
	tracked, err := e.repo.ListSourceKeys()
	if err != nil {
		return nil, err
	}
	var fresh []zotero.Item
	for _, item := range items {
		if !tracked[item.Key] {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

func appendSourceKey(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(append([]string(nil), keys...), key)
}
