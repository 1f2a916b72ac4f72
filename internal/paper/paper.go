// Package paper defines the core domain types for the local bibliography store.
package paper

import (
	"encoding/json"
	"time"
)

// Paper represents a bibliographic record in the local store.
// The citation key is the primary identity and stays stable across syncs
// once assigned.
type Paper struct {
	CitationKey string   `json:"citation_key"`
	ItemType    string   `json:"item_type"` // article, book, inproceedings, ...
	Title       string   `json:"title"`
	Authors     []Author `json:"authors"`
	Year        int      `json:"year,omitempty"` // 0 if unknown

	// Bibliographic fields
	Journal   string `json:"journal,omitempty"`
	Volume    string `json:"volume,omitempty"`
	Issue     string `json:"issue,omitempty"`
	Pages     string `json:"pages,omitempty"`
	DOI       string `json:"doi,omitempty"`
	URL       string `json:"url,omitempty"`
	Abstract  string `json:"abstract,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	BookTitle string `json:"book_title,omitempty"`

	// Provenance (a paper may merge multiple source items)
	SourceKeys        []string `json:"source_keys"`
	SourceTags        []string `json:"source_tags,omitempty"`
	SourceCollections []string `json:"source_collections,omitempty"`

	// File store path, relative to the files root ("" = no PDF)
	PDFPath string `json:"pdf_path,omitempty"`

	// Derived fields
	ArxivID string `json:"arxiv_id,omitempty"`
	Venue   string `json:"venue,omitempty"`

	ImportedAt time.Time  `json:"imported_at,omitempty"` // first seen, immutable
	SyncedAt   time.Time  `json:"synced_at,omitempty"`   // last reconciled
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`  // soft-delete marker
}

// Author represents a creator with an ordered position and a role.
type Author struct {
	First string `json:"first_name"`
	Last  string `json:"last_name"`
	Role  string `json:"role"` // author, editor, translator, ...
}

// FirstAuthor returns the first author-role creator, or nil.
func (p *Paper) FirstAuthor() *Author {
	for i := range p.Authors {
		if p.Authors[i].Role == "author" {
			return &p.Authors[i]
		}
	}
	return nil
}

// Editors returns the editor-role creators in order.
func (p *Paper) Editors() []Author {
	var editors []Author
	for _, a := range p.Authors {
		if a.Role == "editor" {
			editors = append(editors, a)
		}
	}
	return editors
}

// HasSourceKey reports whether the paper tracks the given provenance key.
func (p *Paper) HasSourceKey(sourceKey string) bool {
	for _, k := range p.SourceKeys {
		if k == sourceKey {
			return true
		}
	}
	return false
}

// MarshalAuthors serializes authors for the JSON list column.
func MarshalAuthors(authors []Author) string {
	if len(authors) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(authors)
	return string(data)
}

// ParseAuthors deserializes the authors column. Empty input yields nil.
func ParseAuthors(data string) []Author {
	if data == "" {
		return nil
	}
	var authors []Author
	if err := json.Unmarshal([]byte(data), &authors); err != nil {
		return nil
	}
	return authors
}

// MarshalStringList serializes a string list column as a JSON array.
// The serialization is deterministic given the slice order so the same
// provenance set always produces the same column value.
func MarshalStringList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

// ParseStringList deserializes a JSON array column. Empty input yields nil.
func ParseStringList(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
