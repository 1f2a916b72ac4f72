package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/paper"
	"github.com/Joey-Jiao/strata/internal/store"
)

var listFilters = store.Filters{}

func init() {
	listCmd.Flags().IntVar(&listFilters.Limit, "limit", DefaultListLimit, "Maximum results to return")
	listCmd.Flags().IntVar(&listFilters.Offset, "offset", 0, "Results to skip")
	listCmd.Flags().IntVar(&listFilters.YearFrom, "year-from", 0, "Only papers from this year onward")
	listCmd.Flags().IntVar(&listFilters.YearTo, "year-to", 0, "Only papers up to this year")
	listCmd.Flags().StringVar(&listFilters.Author, "author", "", "Filter by author last name")
	listCmd.Flags().StringVar(&listFilters.Venue, "venue", "", "Filter by normalized venue")
	listCmd.Flags().StringVar(&listFilters.Tag, "tag", "", "Filter by Zotero tag")
	listCmd.Flags().StringVar(&listFilters.SortBy, "sort", "", "Sort order: year, title, key, imported")
	listCmd.Flags().StringVar(&listCollection, "collection", "", "Filter by collection path")
	rootCmd.AddCommand(listCmd)
}

var listCollection string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers",
	Long: `List papers in the store, newest first.

Examples:
  strata list
  strata list --limit 100 --year-from 2020
  strata list --collection "Projects/Phylogenetics" --human`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()
	repo := store.NewRepository(db)

	var papers []paper.Paper
	var total int
	var err error
	if listCollection != "" {
		papers, err = repo.ListByCollection(listCollection)
		total = len(papers)
	} else {
		papers, total, err = repo.Find(listFilters)
	}
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	if humanOutput {
		if len(papers) == 0 {
			fmt.Println("No papers in store")
			return nil
		}
		if total > len(papers) {
			fmt.Printf("%d papers (showing %d):\n\n", total, len(papers))
		} else {
			fmt.Printf("%d papers:\n\n", total)
		}
		printPaperLines(papers, ListTitleMaxLen)
	} else {
		if papers == nil {
			papers = []paper.Paper{}
		}
		outputJSON(ListResponse{Papers: papers, Total: total, Limit: listFilters.Limit, Offset: listFilters.Offset})
	}
	return nil
}
