// Package main provides the strata CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/config"
	"github.com/Joey-Jiao/strata/internal/store"
	syncer "github.com/Joey-Jiao/strata/internal/sync"
	"github.com/Joey-Jiao/strata/internal/zotero"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Local queryable mirror of a Zotero library",
	Long: `strata maintains a local, deduplicated paper database synced from a
Zotero library.

Papers get stable, human-readable citation keys, full-text search over
titles, abstracts and authors, and a per-key PDF store. A watch mode
resyncs automatically when Zotero writes to its database.

All commands output JSON by default for easy scripting; pass --human
for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenStore opens the paper database and runs pending migrations,
// exits on error. The caller is responsible for calling Close().
func mustOpenStore(cfg *config.Config) *store.DB {
	db, err := store.Open(cfg.DBPath())
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	if err := db.Initialize(store.MigrationContext{FilesDir: cfg.FilesPath()}); err != nil {
		db.Close()
		exitWithError(ExitError, "migrating database: %v", err)
	}
	return db
}

// mustOpenFiles opens the PDF file store, exits on error.
func mustOpenFiles(cfg *config.Config) *store.Files {
	files, err := store.NewFiles(cfg.FilesPath())
	if err != nil {
		exitWithError(ExitError, "opening file store: %v", err)
	}
	return files
}

// mustOpenZotero opens the Zotero database read-only, exits on error.
// The caller is responsible for calling Close() on the reader.
func mustOpenZotero(cfg *config.Config) (*zotero.Reader, *zotero.Storage) {
	reader, err := zotero.NewReader(cfg.ZoteroDBPath())
	if err != nil {
		exitWithError(ExitDataError, "opening zotero library: %v", err)
	}
	return reader, zotero.NewStorage(cfg.ZoteroStoragePath())
}

// buildEngine wires a sync engine from config. The returned closer
// releases the underlying database handles. The Zotero connection is
// opened against a snapshot of the library file, so engines should be
// short-lived: build, sync, close.
func buildEngine(cfg *config.Config) (*syncer.Engine, func(), error) {
	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Initialize(store.MigrationContext{FilesDir: cfg.FilesPath()}); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	files, err := store.NewFiles(cfg.FilesPath())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening file store: %w", err)
	}
	reader, err := zotero.NewReader(cfg.ZoteroDBPath())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening zotero library: %w", err)
	}

	engine := syncer.NewEngine(reader, zotero.NewStorage(cfg.ZoteroStoragePath()), store.NewRepository(db), files, cfg.StopWordSet())
	closer := func() {
		reader.Close()
		db.Close()
	}
	return engine, closer, nil
}

// mustBuildEngine wires a sync engine from config, exits on error.
func mustBuildEngine(cfg *config.Config) (*syncer.Engine, func()) {
	engine, closer, err := buildEngine(cfg)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	return engine, closer
}
