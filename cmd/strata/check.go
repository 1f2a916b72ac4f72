package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/pdf"
	"github.com/Joey-Jiao/strata/internal/store"
)

var checkFix bool

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Write recovered DOIs back to the store")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check papers without a DOI against their PDFs",
	Long: `Check papers that have a stored PDF but no DOI, extracting a DOI
from the PDF text where possible.

By default only reports findings; with --fix the recovered DOIs are
written back to the store.

Examples:
  strata check
  strata check --fix`,
	RunE: runCheck,
}

// CheckResult describes one paper examined by check.
type CheckResult struct {
	CitationKey string `json:"citation_key"`
	DOI         string `json:"doi,omitempty"`
	Fixed       bool   `json:"fixed,omitempty"`
	Error       string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()
	repo := store.NewRepository(db)

	papers, err := repo.ListAll()
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	var results []CheckResult
	for i := range papers {
		p := &papers[i]
		if p.DOI != "" || p.PDFPath == "" {
			continue
		}

		result := CheckResult{CitationKey: p.CitationKey}
		doi, err := pdf.ExtractDOI(filepath.Join(cfg.FilesPath(), p.PDFPath))
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		if doi == "" {
			continue
		}

		result.DOI = doi
		if checkFix {
			p.DOI = doi
			if err := repo.Update(p); err != nil {
				result.Error = err.Error()
			} else {
				result.Fixed = true
			}
		}
		results = append(results, result)
	}

	if humanOutput {
		if len(results) == 0 {
			fmt.Println("Nothing to report")
			return nil
		}
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Printf("  %-28s error: %s\n", r.CitationKey, r.Error)
			case r.Fixed:
				fmt.Printf("  %-28s fixed: %s\n", r.CitationKey, r.DOI)
			default:
				fmt.Printf("  %-28s found: %s\n", r.CitationKey, r.DOI)
			}
		}
	} else {
		if results == nil {
			results = []CheckResult{}
		}
		outputJSON(results)
	}
	return nil
}
