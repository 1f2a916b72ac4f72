package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Joey-Jiao/strata/internal/config"
	syncer "github.com/Joey-Jiao/strata/internal/sync"
)

var (
	watchDebounce time.Duration
	watchMinGap   time.Duration
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet window after a write before resyncing (default from config)")
	watchCmd.Flags().DurationVar(&watchMinGap, "min-gap", 10*time.Second, "Minimum time between consecutive resyncs")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the Zotero database and resync on changes",
	Long: `Watch the Zotero database and resync whenever Zotero writes to it.

Writes are debounced: a burst of changes triggers one sync after a quiet
window. Consecutive syncs are additionally rate limited by --min-gap.
Runs an initial sync on startup. Stop with Ctrl-C.

Examples:
  strata watch
  strata watch --debounce 5s --min-gap 30s`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	debounce := watchDebounce
	if debounce == 0 {
		debounce = cfg.Debounce()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The watcher callback only signals; the sync itself runs on this
	// goroutine so a slow sync never blocks event handling.
	changed := make(chan struct{}, 1)
	watcher := syncer.NewWatcher(cfg.ZoteroDBPath(), debounce, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err := watcher.Start(); err != nil {
		exitWithError(ExitError, "starting watcher: %v", err)
	}
	defer watcher.Stop()

	if humanOutput {
		outputHuman("Watching %s (debounce %s)\n", cfg.ZoteroDBPath(), debounce)
	}
	runWatchSync(cfg)

	limiter := rate.NewLimiter(rate.Every(watchMinGap), 1)
	for {
		select {
		case <-ctx.Done():
			if humanOutput {
				outputHuman("Stopped\n")
			}
			return nil
		case <-changed:
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			runWatchSync(cfg)
		}
	}
}

// runWatchSync builds a fresh engine and runs one sync pass; failures
// are reported but keep the watch loop alive. The engine is rebuilt per
// pass so each sync sees a consistent snapshot of the Zotero file.
func runWatchSync(cfg *config.Config) {
	engine, closer, err := buildEngine(cfg)
	if err != nil {
		fmt.Printf("sync skipped: %v\n", err)
		return
	}
	defer closer()

	result, err := engine.Sync()
	if err != nil {
		if errors.Is(err, syncer.ErrSyncRunning) {
			return
		}
		fmt.Printf("sync failed: %v\n", err)
		return
	}
	printSyncResult(result)
}
