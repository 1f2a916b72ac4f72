package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	syncer "github.com/Joey-Jiao/strata/internal/sync"
)

var syncDeep bool

func init() {
	syncCmd.Flags().BoolVar(&syncDeep, "deep", false, "Rebuild the store from scratch (destroys local state)")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync papers from the Zotero library",
	Long: `Sync papers from the Zotero library into the local store.

A normal sync is incremental: it imports new items, refreshes fields of
known ones, merges duplicates, renames citation keys when metadata
changed, and soft-deletes papers whose every source item disappeared.

With --deep the local database and file store are wiped and rebuilt
from the current library. Citation keys are regenerated from scratch.

Examples:
  strata sync
  strata sync --deep`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	engine, closer := mustBuildEngine(cfg)
	defer closer()

	var result *syncer.Result
	var err error
	if syncDeep {
		result, err = engine.DeepSync()
	} else {
		result, err = engine.Sync()
	}
	if err != nil {
		if errors.Is(err, syncer.ErrSyncRunning) {
			exitWithError(ExitSyncBusy, "%v", err)
		}
		exitWithError(ExitError, "sync failed: %v", err)
	}

	printSyncResult(result)
	return nil
}

func printSyncResult(result *syncer.Result) {
	if !humanOutput {
		outputJSON(result)
		return
	}
	outputHuman("Synced %d papers (%d imported, %d renamed, %d deleted)\n",
		result.Synced, result.Imported, result.Renamed, result.Deleted)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
