// Package citekey generates deterministic, human-readable citation keys
// of the form <author><year><titlewords>, e.g. "smith2023deep".
package citekey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Joey-Jiao/strata/internal/zotero"
)

// normalizer strips diacritics: NFKD decomposition, drop combining marks.
var normalizer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// normalize lowercases text, strips diacritics and punctuation, and drops
// any remaining non-ASCII runes.
func normalize(text string) string {
	stripped, _, err := transform.String(normalizer, text)
	if err != nil {
		stripped = text
	}
	var b strings.Builder
	for _, r := range stripped {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// authorPart returns the normalized last name of the first author-role
// creator, or "unknown".
func authorPart(item zotero.Item) string {
	author := item.FirstAuthor()
	if author == nil {
		return "unknown"
	}
	name := author.Last
	if name == "" {
		name = author.First
	}
	normalized := strings.ReplaceAll(normalize(name), " ", "")
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func yearPart(item zotero.Item) string {
	if year := item.Year(); year > 0 {
		return strconv.Itoa(year)
	}
	return ""
}

// titleWords returns normalized title tokens with stop words removed.
// When fewer than the keyword count survive removal, the raw token list
// is used instead so short titles still contribute words.
func titleWords(title string, stopWords map[string]bool, count int) []string {
	words := strings.Fields(normalize(title))
	var kept []string
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) < count {
		kept = words
	}
	return kept
}

// Generate derives the base citation key: author + year + up to three
// title keywords. Falls back to the item's source key when everything
// else is empty.
func Generate(item zotero.Item, stopWords map[string]bool) string {
	key := authorPart(item) + yearPart(item)
	if item.Title != "" {
		words := titleWords(item.Title, stopWords, 3)
		if len(words) > 3 {
			words = words[:3]
		}
		key += strings.Join(words, "")
	}
	if key == "" {
		return item.Key
	}
	return key
}

// Generator resolves citation key collisions within a batch of items.
type Generator struct {
	stopWords map[string]bool
}

// NewGenerator creates a Generator with the given stop-word set.
func NewGenerator(stopWords map[string]bool) *Generator {
	if stopWords == nil {
		stopWords = map[string]bool{}
	}
	return &Generator{stopWords: stopWords}
}

// GenerateUnique returns the shortest free key for the item: the title
// window widens one word at a time, and once all title words are spent,
// numeric suffixes disambiguate.
func (g *Generator) GenerateUnique(item zotero.Item, existing map[string]bool) string {
	author := authorPart(item)
	year := yearPart(item)
	var words []string
	if item.Title != "" {
		words = titleWords(item.Title, g.stopWords, 1)
	}

	for count := 1; count <= len(words); count++ {
		key := author + year + strings.Join(words[:count], "")
		if !existing[key] {
			return key
		}
	}

	base := author + year + strings.Join(words, "")
	if !existing[base] {
		return base
	}
	// Every key must be free; the suffix sequence is unbounded.
	for i := 2; ; i++ {
		key := fmt.Sprintf("%s-%d", base, i)
		if !existing[key] {
			return key
		}
	}
}

// GenerateAll assigns a unique key to every item in the batch, keyed by
// the item's source key. Items are processed in source-key order so the
// assignment is stable across runs over an unchanged library.
func (g *Generator) GenerateAll(items []zotero.Item) map[string]string {
	sorted := make([]zotero.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Key < sorted[b].Key })

	claimed := make(map[string]bool, len(sorted))
	keys := make(map[string]string, len(sorted))
	for _, item := range sorted {
		key := g.GenerateUnique(item, claimed)
		claimed[key] = true
		keys[item.Key] = key
	}
	return keys
}
