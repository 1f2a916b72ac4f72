// Package export provides functions to export papers to various formats.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Joey-Jiao/strata/internal/paper"
)

// entryTypeMap translates stored entry types to BibTeX entry types where
// they differ. Unlisted types pass through unchanged.
var entryTypeMap = map[string]string{
	"thesis": "phdthesis",
}

// ToBibTeX converts a paper to a BibTeX entry.
func ToBibTeX(p *paper.Paper) string {
	entryType := entryTypeFor(p)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, p.CitationKey))

	if p.Title != "" {
		b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))
	}
	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}
	if p.Year != 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", p.Year))
	}
	if p.Journal != "" {
		b.WriteString(fmt.Sprintf("  journal = {%s},\n", escapeLatex(p.Journal)))
	}
	if p.BookTitle != "" {
		b.WriteString(fmt.Sprintf("  booktitle = {%s},\n", escapeLatex(p.BookTitle)))
	}
	if p.Volume != "" {
		b.WriteString(fmt.Sprintf("  volume = {%s},\n", escapeLatex(p.Volume)))
	}
	if p.Issue != "" {
		b.WriteString(fmt.Sprintf("  number = {%s},\n", escapeLatex(p.Issue)))
	}
	if p.Pages != "" {
		b.WriteString(fmt.Sprintf("  pages = {%s},\n", escapeLatex(p.Pages)))
	}
	if p.Publisher != "" {
		b.WriteString(fmt.Sprintf("  publisher = {%s},\n", escapeLatex(p.Publisher)))
	}
	if p.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", p.DOI))
	}
	if p.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", p.URL))
	}
	if p.ArxivID != "" {
		b.WriteString(fmt.Sprintf("  eprint = {%s},\n", p.ArxivID))
		b.WriteString("  archiveprefix = {arXiv},\n")
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple papers to a BibTeX document, ordered by
// citation key.
func ToBibTeXList(papers []paper.Paper) string {
	sorted := make([]paper.Paper, len(papers))
	copy(sorted, papers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CitationKey < sorted[j].CitationKey
	})

	var entries []string
	for i := range sorted {
		entries = append(entries, ToBibTeX(&sorted[i]))
	}
	return strings.Join(entries, "\n")
}

// entryTypeFor returns the BibTeX entry type for a paper.
func entryTypeFor(p *paper.Paper) string {
	if mapped, ok := entryTypeMap[p.ItemType]; ok {
		return mapped
	}
	if p.ItemType == "" {
		return "misc"
	}
	return p.ItemType
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []paper.Author) string {
	var formatted []string
	for _, a := range authors {
		if a.First != "" && a.Last != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		} else if a.Last != "" {
			formatted = append(formatted, a.Last)
		} else if a.First != "" {
			formatted = append(formatted, a.First)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
