package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/export"
	"github.com/Joey-Jiao/strata/internal/paper"
	"github.com/Joey-Jiao/strata/internal/store"
)

var (
	exportOut    string
	exportAppend bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append to --out, skipping entries already present")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [citation-key...]",
	Short: "Export papers as BibTeX",
	Long: `Export papers as BibTeX. With no arguments, exports the whole store.

With --append the output file is parsed first and papers already
present (matched by DOI, falling back to citation key) are skipped.

Examples:
  strata export > refs.bib
  strata export smith2023deep jones2021fast
  strata export --out refs.bib --append`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportAppend && exportOut == "" {
		exitWithError(ExitError, "--append requires --out")
	}

	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()
	repo := store.NewRepository(db)

	var papers []paper.Paper
	if len(args) == 0 {
		all, err := repo.ListAll()
		if err != nil {
			exitWithError(ExitError, "listing papers: %v", err)
		}
		papers = all
	} else {
		for _, key := range args {
			p, err := repo.Get(key)
			if err != nil {
				exitWithError(ExitError, "getting paper: %v", err)
			}
			if p == nil {
				exitWithError(ExitError, "paper not found: %s", key)
			}
			papers = append(papers, *p)
		}
	}

	if exportAppend {
		idx, err := export.ParseBibTeXFile(exportOut)
		if err != nil {
			exitWithError(ExitError, "parsing %s: %v", exportOut, err)
		}
		var fresh []paper.Paper
		for _, p := range papers {
			if !idx.HasPaper(&p) {
				fresh = append(fresh, p)
			}
		}
		if len(fresh) == 0 {
			if humanOutput {
				fmt.Println("Nothing to append")
			} else {
				outputJSON(StatusResponse{Status: "up-to-date", Path: exportOut})
			}
			return nil
		}
		if err := export.AppendToBibFile(exportOut, export.ToBibTeXList(fresh)); err != nil {
			exitWithError(ExitError, "appending to %s: %v", exportOut, err)
		}
		if humanOutput {
			fmt.Printf("Appended %d entries to %s\n", len(fresh), exportOut)
		} else {
			outputJSON(map[string]interface{}{"status": "appended", "entries": len(fresh), "path": exportOut})
		}
		return nil
	}

	content := export.ToBibTeXList(papers)
	if exportOut == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(exportOut, []byte(content), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOut, err)
	}
	if humanOutput {
		fmt.Printf("Exported %d entries to %s\n", len(papers), exportOut)
	} else {
		outputJSON(map[string]interface{}{"status": "exported", "entries": len(papers), "path": exportOut})
	}
	return nil
}
