package main

import (
	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/store"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the full-text search index",
	Long: `Rebuild the full-text search index from the papers table.

The index is kept in lockstep with the table automatically; rebuild is
a recovery tool for an index that has drifted or been corrupted.`,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	if err := store.NewRepository(db).RebuildFTS(); err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	if humanOutput {
		outputHuman("Search index rebuilt\n")
	} else {
		outputJSON(StatusResponse{Status: "rebuilt"})
	}
	return nil
}
