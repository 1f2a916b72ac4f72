package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/zotero"
)

func init() {
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "List Zotero items not yet in the store",
	Long: `List Zotero items that no paper in the store tracks yet.

These are the items a 'strata sync' would import.`,
	RunE: runNew,
}

// NewItem summarizes an untracked Zotero item.
type NewItem struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Authors string `json:"authors,omitempty"`
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	engine, closer := mustBuildEngine(cfg)
	defer closer()

	items, err := engine.ListNewItems()
	if err != nil {
		exitWithError(ExitDataError, "listing new items: %v", err)
	}

	if humanOutput {
		if len(items) == 0 {
			fmt.Println("Store is up to date")
			return nil
		}
		fmt.Printf("%d new items:\n\n", len(items))
		for _, item := range items {
			fmt.Printf("  %-10s %s\n", item.Key, truncateString(item.Title, ListTitleMaxLen))
		}
		return nil
	}

	out := make([]NewItem, 0, len(items))
	for _, item := range items {
		out = append(out, NewItem{
			Key:     item.Key,
			Title:   item.Title,
			Year:    item.Year(),
			Authors: summarizeCreators(item.Creators),
		})
	}
	return outputJSON(out)
}

func summarizeCreators(creators []zotero.Creator) string {
	if len(creators) == 0 {
		return ""
	}
	s := creators[0].Last
	if len(creators) > 1 {
		s += " et al."
	}
	return s
}
