package export

import (
	"strings"
	"testing"

	"github.com/Joey-Jiao/strata/internal/paper"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	p := &paper.Paper{
		CitationKey: "smith2024deep",
		ItemType:    "article",
		Title:       "Test Paper Title",
		Authors: []paper.Author{
			{First: "John", Last: "Smith"},
			{First: "Jane", Last: "Doe"},
		},
		Year:    2024,
		Journal: "Nature",
		Volume:  "12",
		Issue:   "3",
		Pages:   "100-110",
		DOI:     "10.1234/test",
	}

	got := ToBibTeX(p)

	if !strings.HasPrefix(got, "@article{smith2024deep,") {
		t.Errorf("ToBibTeX() should start with @article{smith2024deep, got:\n%s", got)
	}
	if !strings.Contains(got, `author = {Smith, John and Doe, Jane}`) {
		t.Errorf("ToBibTeX() should contain properly formatted authors, got:\n%s", got)
	}
	if !strings.Contains(got, `title = {Test Paper Title}`) {
		t.Errorf("ToBibTeX() should contain title, got:\n%s", got)
	}
	if !strings.Contains(got, `journal = {Nature}`) {
		t.Errorf("ToBibTeX() should contain journal, got:\n%s", got)
	}
	if !strings.Contains(got, `year = {2024}`) {
		t.Errorf("ToBibTeX() should contain year, got:\n%s", got)
	}
	if !strings.Contains(got, `volume = {12}`) {
		t.Errorf("ToBibTeX() should contain volume, got:\n%s", got)
	}
	if !strings.Contains(got, `number = {3}`) {
		t.Errorf("ToBibTeX() should map issue to number, got:\n%s", got)
	}
	if !strings.Contains(got, `doi = {10.1234/test}`) {
		t.Errorf("ToBibTeX() should contain DOI, got:\n%s", got)
	}
	if !strings.HasSuffix(strings.TrimSpace(got), "}") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	p := &paper.Paper{
		CitationKey: "brown2024attention",
		ItemType:    "inproceedings",
		Title:       "A Conference Paper",
		Authors: []paper.Author{
			{First: "Alice", Last: "Brown"},
		},
		Year:      2024,
		BookTitle: "Proceedings of ICML 2024",
	}

	got := ToBibTeX(p)

	if !strings.HasPrefix(got, "@inproceedings{brown2024attention,") {
		t.Errorf("ToBibTeX() conference paper should be @inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of ICML 2024}`) {
		t.Errorf("ToBibTeX() conference paper should use booktitle, got:\n%s", got)
	}
}

func TestEntryTypeFor(t *testing.T) {
	tests := []struct {
		itemType string
		want     string
	}{
		{"article", "article"},
		{"book", "book"},
		{"incollection", "incollection"},
		{"inproceedings", "inproceedings"},
		{"thesis", "phdthesis"},
		{"techreport", "techreport"},
		{"misc", "misc"},
		{"", "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.itemType, func(t *testing.T) {
			p := &paper.Paper{ItemType: tt.itemType}
			got := entryTypeFor(p)
			if got != tt.want {
				t.Errorf("entryTypeFor(%q) = %q, want %q", tt.itemType, got, tt.want)
			}
		})
	}
}

func TestToBibTeX_ArxivFields(t *testing.T) {
	p := &paper.Paper{
		CitationKey: "vaswani2017attention",
		ItemType:    "article",
		Title:       "Attention Is All You Need",
		Year:        2017,
		ArxivID:     "1706.03762",
	}

	got := ToBibTeX(p)

	if !strings.Contains(got, `eprint = {1706.03762}`) {
		t.Errorf("ToBibTeX() should contain eprint, got:\n%s", got)
	}
	if !strings.Contains(got, `archiveprefix = {arXiv}`) {
		t.Errorf("ToBibTeX() should contain archiveprefix, got:\n%s", got)
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []paper.Author
		want    string
	}{
		{
			name: "single author",
			authors: []paper.Author{
				{First: "John", Last: "Smith"},
			},
			want: "Smith, John",
		},
		{
			name: "two authors",
			authors: []paper.Author{
				{First: "John", Last: "Smith"},
				{First: "Jane", Last: "Doe"},
			},
			want: "Smith, John and Doe, Jane",
		},
		{
			name: "author with only last name",
			authors: []paper.Author{
				{Last: "Corporation"},
			},
			want: "Corporation",
		},
		{
			name: "mixed authors",
			authors: []paper.Author{
				{First: "John", Last: "Smith"},
				{Last: "WHO"},
			},
			want: "Smith, John and WHO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAuthors(tt.authors)
			if got != tt.want {
				t.Errorf("formatAuthors() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"100% effective", `100\% effective`},
		{"A & B", `A \& B`},
		{"$100 price", `\$100 price`},
		{"section #1", `section \#1`},
		{"under_score", `under\_score`},
		{"{braces}", `\{braces\}`},
		{"test~tilde", `test\textasciitilde{}tilde`},
		{"x^2", `x\textasciicircum{}2`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeLatex(tt.input)
			if got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	p := &paper.Paper{
		CitationKey: "minimal2024short",
		ItemType:    "article",
		Title:       "Minimal Paper",
		Year:        2024,
	}

	got := ToBibTeX(p)

	for _, field := range []string{"doi = ", "author = ", "journal = ", "booktitle = ", "eprint = "} {
		if strings.Contains(got, field) {
			t.Errorf("ToBibTeX() should not include empty %s, got:\n%s", field, got)
		}
	}
	if !strings.Contains(got, "title = ") {
		t.Errorf("ToBibTeX() should still include title, got:\n%s", got)
	}
	if !strings.Contains(got, "year = ") {
		t.Errorf("ToBibTeX() should still include year, got:\n%s", got)
	}
}

func TestToBibTeXList_SortedByKey(t *testing.T) {
	papers := []paper.Paper{
		{CitationKey: "zhou2023late", ItemType: "article", Title: "Second Paper", Year: 2023},
		{CitationKey: "adams2024early", ItemType: "article", Title: "First Paper", Year: 2024},
	}

	got := ToBibTeXList(papers)

	first := strings.Index(got, "@article{adams2024early,")
	second := strings.Index(got, "@article{zhou2023late,")
	if first == -1 || second == -1 {
		t.Fatalf("ToBibTeXList() should contain both entries, got:\n%s", got)
	}
	if first > second {
		t.Errorf("ToBibTeXList() should order entries by citation key, got:\n%s", got)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	got := ToBibTeXList(nil)
	if got != "" {
		t.Errorf("ToBibTeXList(nil) should return empty string, got: %q", got)
	}
}

func TestBibTeXIndex_HasPaper(t *testing.T) {
	idx := NewBibTeXIndex()
	idx.Keys["smith2024deep"] = true
	idx.DOIs["10.1234/test"] = "smith2024deep"

	if !idx.HasPaper(&paper.Paper{CitationKey: "other2024key", DOI: "https://doi.org/10.1234/TEST"}) {
		t.Error("HasPaper() should match by normalized DOI")
	}
	if !idx.HasPaper(&paper.Paper{CitationKey: "smith2024deep"}) {
		t.Error("HasPaper() should fall back to citation key")
	}
	if idx.HasPaper(&paper.Paper{CitationKey: "new2024paper", DOI: "10.9999/other"}) {
		t.Error("HasPaper() should not match unknown papers")
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(t.TempDir() + "/nope.bib")
	if err != nil {
		t.Fatalf("ParseBibTeXFile() on missing file: %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("ParseBibTeXFile() on missing file should be empty, got %d keys", len(idx.Keys))
	}
}
