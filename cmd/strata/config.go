package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  strata config                               # Show all config
  strata config zotero-db                     # Get specific value
  strata config zotero-db ~/Zotero/zotero.sqlite
  strata config pdf-reader skim

Keys:
  zotero-db       Path to the Zotero SQLite database
  zotero-storage  Path to the Zotero storage directory
  data-dir        Directory holding the paper database and PDF store
  pdf-reader      PDF reader preference (system, skim, preview, zathura, evince, okular)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("zotero-db:      %s\n", cfg.ZoteroDB)
			fmt.Printf("zotero-storage: %s\n", cfg.ZoteroStorage)
			fmt.Printf("data-dir:       %s\n", cfg.DataDir)
			fmt.Printf("pdf-reader:     %s\n", cfg.PDFReader)
		} else {
			outputJSON(map[string]string{
				"zotero_db":      cfg.ZoteroDB,
				"zotero_storage": cfg.ZoteroStorage,
				"data_dir":       cfg.DataDir,
				"pdf_reader":     cfg.PDFReader,
			})
		}
		return nil
	}

	key := args[0]
	field, ok := configField(cfg, key)
	if !ok {
		exitWithError(ExitError, "unknown configuration key: %s", key)
	}

	// One arg: get specific value
	if len(args) == 1 {
		if humanOutput {
			fmt.Println(*field)
		} else {
			outputJSON(map[string]string{key: *field})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if key == "pdf-reader" {
		if err := config.ValidatePDFReader(value); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	} else if value != "" {
		if _, err := os.Stat(config.ExpandPath(value)); err != nil {
			exitWithError(ExitError, "path does not exist: %s", config.ExpandPath(value))
		}
	}

	*field = value
	if err := cfg.Save(); err != nil {
		exitWithError(ExitConfigError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s = %s\n", key, value)
	} else {
		outputJSON(map[string]string{"status": "updated", key: value})
	}
	return nil
}

func configField(cfg *config.Config, key string) (*string, bool) {
	switch key {
	case "zotero-db":
		return &cfg.ZoteroDB, true
	case "zotero-storage":
		return &cfg.ZoteroStorage, true
	case "data-dir":
		return &cfg.DataDir, true
	case "pdf-reader":
		return &cfg.PDFReader, true
	}
	return nil, false
}
