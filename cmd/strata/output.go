package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Joey-Jiao/strata/internal/paper"
)

// Constants for output formatting.
const (
	DefaultListLimit = 20 // Default limit for list/search commands

	ListTitleMaxLen   = 50 // Used in list command output
	SearchTitleMaxLen = 70 // Used in search result summaries
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse wraps paginated paper results.
type ListResponse struct {
	Papers []paper.Paper `json:"papers"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatAuthorShort formats an author as "Last F" (abbreviated first name).
func formatAuthorShort(a paper.Author) string {
	if a.First != "" {
		return a.Last + " " + string(a.First[0])
	}
	return a.Last
}

// formatAuthorsShort formats authors with abbreviation and "et al." for more than maxCount.
func formatAuthorsShort(authors []paper.Author, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}

	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, formatAuthorShort(a))
	}
	return strings.Join(names, ", ")
}

// printPaperLines prints papers one per line: key, year, truncated title.
func printPaperLines(papers []paper.Paper, titleLen int) {
	for _, p := range papers {
		year := "????"
		if p.Year != 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		fmt.Printf("  %-28s %s  %s\n", p.CitationKey, year, truncateString(p.Title, titleLen))
	}
}

// printPaperDetail prints a full paper record.
func printPaperDetail(p *paper.Paper) {
	fmt.Println(p.CitationKey)
	fmt.Println(strings.Repeat("═", 70))
	if p.Title != "" {
		fmt.Printf("Title:    %s\n", p.Title)
	}
	if len(p.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", formatAuthorsShort(p.Authors, 10))
	}
	if p.Year != 0 {
		fmt.Printf("Year:     %d\n", p.Year)
	}
	if p.Journal != "" {
		fmt.Printf("Journal:  %s\n", p.Journal)
	}
	if p.BookTitle != "" {
		fmt.Printf("In:       %s\n", p.BookTitle)
	}
	if p.Venue != "" {
		fmt.Printf("Venue:    %s\n", p.Venue)
	}
	if p.DOI != "" {
		fmt.Printf("DOI:      %s\n", p.DOI)
	}
	if p.ArxivID != "" {
		fmt.Printf("arXiv:    %s\n", p.ArxivID)
	}
	if p.URL != "" {
		fmt.Printf("URL:      %s\n", p.URL)
	}
	if p.PDFPath != "" {
		fmt.Printf("PDF:      %s\n", p.PDFPath)
	}
	if len(p.SourceTags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(p.SourceTags, ", "))
	}
	if len(p.SourceCollections) > 0 {
		fmt.Printf("Collections: %s\n", strings.Join(p.SourceCollections, ", "))
	}
	if p.Abstract != "" {
		fmt.Printf("\n%s\n", p.Abstract)
	}
}
