package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/paper"
	"github.com/Joey-Jiao/strata/internal/store"
)

var searchFilters = store.Filters{}

func init() {
	searchCmd.Flags().IntVar(&searchFilters.Limit, "limit", DefaultListLimit, "Maximum results to return")
	searchCmd.Flags().IntVar(&searchFilters.Offset, "offset", 0, "Results to skip")
	searchCmd.Flags().IntVar(&searchFilters.YearFrom, "year-from", 0, "Only papers from this year onward")
	searchCmd.Flags().IntVar(&searchFilters.YearTo, "year-to", 0, "Only papers up to this year")
	searchCmd.Flags().StringVar(&searchFilters.Author, "author", "", "Filter by author last name")
	searchCmd.Flags().StringVar(&searchFilters.Venue, "venue", "", "Filter by normalized venue")
	searchCmd.Flags().StringVar(&searchFilters.Tag, "tag", "", "Filter by Zotero tag")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Full-text search over titles, abstracts and authors",
	Long: `Full-text search over titles, abstracts and authors, ranked by
relevance.

The query uses SQLite FTS5 syntax: bare words are AND-ed, quoted
phrases match exactly, and OR/NOT work as operators.

Examples:
  strata search transformer attention
  strata search '"variational inference"' --year-from 2018
  strata search phylogenetics --author Matsen --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()
	repo := store.NewRepository(db)

	searchFilters.Query = strings.Join(args, " ")
	searchFilters.SortBy = "relevance"
	papers, total, err := repo.Find(searchFilters)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	if humanOutput {
		if len(papers) == 0 {
			fmt.Println("No matches")
			return nil
		}
		fmt.Printf("%d matches:\n\n", total)
		for i, p := range papers {
			fmt.Printf("%d. %s\n", i+1, p.CitationKey)
			fmt.Printf("   %s\n", truncateString(p.Title, SearchTitleMaxLen))
			fmt.Printf("   %s (%d)\n\n", formatAuthorsShort(p.Authors, 3), p.Year)
		}
	} else {
		if papers == nil {
			papers = []paper.Paper{}
		}
		outputJSON(ListResponse{Papers: papers, Total: total, Limit: searchFilters.Limit, Offset: searchFilters.Offset})
	}
	return nil
}
