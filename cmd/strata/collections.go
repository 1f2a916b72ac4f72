package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/store"
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(tagsCmd)
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collection paths",
	Long: `List the distinct collection paths across all active papers.

Nested Zotero collections appear as slash-separated paths, e.g.
"Projects/Phylogenetics". Filter papers by collection with
'strata list --collection <path>'.`,
	RunE: runCollections,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags",
	Long: `List the distinct Zotero tags across all active papers.

Filter papers by tag with 'strata list --tag <tag>'.`,
	RunE: runTags,
}

func runCollections(cmd *cobra.Command, args []string) error {
	return runListNames(func(repo *store.Repository) ([]string, error) {
		return repo.ListCollections()
	})
}

func runTags(cmd *cobra.Command, args []string) error {
	return runListNames(func(repo *store.Repository) ([]string, error) {
		return repo.ListTags()
	})
}

func runListNames(list func(*store.Repository) ([]string, error)) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	names, err := list(store.NewRepository(db))
	if err != nil {
		exitWithError(ExitError, "listing: %v", err)
	}

	if humanOutput {
		for _, n := range names {
			fmt.Println(n)
		}
	} else {
		if names == nil {
			names = []string{}
		}
		outputJSON(names)
	}
	return nil
}
