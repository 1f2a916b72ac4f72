// Package zotero provides a read-only adapter over a Zotero SQLite
// database, producing normalized item snapshots for the sync engine.
package zotero

import "regexp"

// Item is a read-only snapshot of a Zotero library item. A fresh snapshot
// is re-read on every sync; Items are never written back.
type Item struct {
	ItemID      int          `json:"item_id"`
	Key         string       `json:"key"` // stable source identifier
	ItemType    string       `json:"item_type"`
	Title       string       `json:"title"`
	Creators    []Creator    `json:"creators"`
	Date        string       `json:"date,omitempty"`
	Journal     string       `json:"journal,omitempty"`
	Volume      string       `json:"volume,omitempty"`
	Issue       string       `json:"issue,omitempty"`
	Pages       string       `json:"pages,omitempty"`
	DOI         string       `json:"doi,omitempty"`
	URL         string       `json:"url,omitempty"`
	Abstract    string       `json:"abstract,omitempty"`
	Publisher   string       `json:"publisher,omitempty"`
	BookTitle   string       `json:"book_title,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Collections []string     `json:"collections,omitempty"` // nested paths, "Parent/Child"
	Tags        []string     `json:"tags,omitempty"`
}

// Creator is an ordered item creator with a role.
type Creator struct {
	First string `json:"first_name"`
	Last  string `json:"last_name"`
	Role  string `json:"role"`
}

// Attachment describes a file attached to an item. Path is relative to the
// attachment's storage folder.
type Attachment struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Key         string `json:"key"`
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Year parses the publication year from the free-form date string.
// Returns 0 when no 19xx/20xx year is present.
func (i *Item) Year() int {
	m := yearPattern.FindString(i.Date)
	if m == "" {
		return 0
	}
	year := 0
	for _, c := range m {
		year = year*10 + int(c-'0')
	}
	return year
}

// FirstAuthor returns the first author-role creator, or nil.
func (i *Item) FirstAuthor() *Creator {
	for idx := range i.Creators {
		if i.Creators[idx].Role == "author" {
			return &i.Creators[idx]
		}
	}
	return nil
}
