package main

import (
	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/store"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <citation-key>",
	Short: "Get a single paper by citation key",
	Long: `Get a single paper by its citation key.

Falls back to Zotero item key lookup when no paper has the given
citation key.

Example:
  strata get smith2023deep`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()
	repo := store.NewRepository(db)

	key := args[0]
	p, err := repo.Get(key)
	if err != nil {
		exitWithError(ExitError, "getting paper: %v", err)
	}
	if p == nil {
		// Agents often hold Zotero item keys rather than citation keys.
		p, err = repo.GetBySourceKey(key)
		if err != nil {
			exitWithError(ExitError, "getting paper: %v", err)
		}
	}
	if p == nil {
		exitWithError(ExitError, "paper not found: %s", key)
	}

	if humanOutput {
		printPaperDetail(p)
	} else {
		outputJSON(p)
	}
	return nil
}
