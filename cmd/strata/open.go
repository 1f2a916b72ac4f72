package main

import (
	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/pdf"
	"github.com/Joey-Jiao/strata/internal/store"
)

func init() {
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <citation-key>",
	Short: "Open a paper's PDF",
	Long: `Open a paper's stored PDF in the configured reader.

The reader is set via pdf_reader in the config file (system, skim,
preview, zathura, evince, okular).

Example:
  strata open smith2023deep`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	p, err := store.NewRepository(db).Get(args[0])
	if err != nil {
		exitWithError(ExitError, "getting paper: %v", err)
	}
	if p == nil {
		exitWithError(ExitError, "paper not found: %s", args[0])
	}
	if p.PDFPath == "" {
		exitWithError(ExitDataError, "no PDF stored for %s", p.CitationKey)
	}

	opener := pdf.NewOpener(cfg.FilesPath(), cfg.PDFReader)
	fullPath, err := opener.ResolvePath(p.PDFPath)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if err := opener.Open(fullPath); err != nil {
		exitWithError(ExitError, "opening PDF: %v", err)
	}

	if humanOutput {
		outputHuman("Opened %s\n", fullPath)
	} else {
		outputJSON(StatusResponse{Status: "opened", Path: fullPath})
	}
	return nil
}
