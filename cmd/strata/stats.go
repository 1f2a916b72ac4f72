package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Joey-Jiao/strata/internal/store"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long: `Show store statistics: paper count, year range, per-year histogram,
PDF coverage, and last sync time.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	stats, err := store.NewRepository(db).GetStats()
	if err != nil {
		exitWithError(ExitError, "computing stats: %v", err)
	}

	if !humanOutput {
		outputJSON(stats)
		return nil
	}

	fmt.Printf("%d papers", stats.Total)
	if stats.YearMin != 0 {
		fmt.Printf(" (%d-%d)", stats.YearMin, stats.YearMax)
	}
	fmt.Println()
	fmt.Printf("PDFs: %d (missing %d)\n", stats.PDFCount, stats.NoPDFCount)
	if !stats.LastSync.IsZero() {
		fmt.Printf("Last sync: %s\n", stats.LastSync.Format("2006-01-02 15:04:05"))
	}

	if len(stats.ByYear) > 0 {
		fmt.Println()
		years := make([]int, 0, len(stats.ByYear))
		for y := range stats.ByYear {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			fmt.Printf("  %d  %d\n", y, stats.ByYear[y])
		}
	}
	return nil
}
