package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the paper store",
	Long: `Initialize the paper store: creates the data directory, the paper
database with its schema, and the PDF file store.

Writes a default config file if none exists. Paths come from the config
file, .env, or STRATA_* environment variables.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// Write the config file on first run so users have something to edit.
	if _, err := os.Stat(config.Path()); os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			exitWithError(ExitConfigError, "writing config: %v", err)
		}
	}

	db := mustOpenStore(cfg)
	defer db.Close()
	mustOpenFiles(cfg)

	if humanOutput {
		outputHuman("Initialized paper store in %s\n", cfg.DataDir)
		outputHuman("Config: %s\n", config.Path())
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: cfg.DataDir})
	}
	return nil
}
