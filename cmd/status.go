package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LinfanS/court-transcripts-pipeline/internal/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger state and recent ingest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledger, err := newLedger(ctx)
		if err != nil {
			return err
		}
		date, citations, err := ledger.Read(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("ledger date: %s (%d citations logged)\n",
			date.Format(progress.DateLayout), len(citations))

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		loaded, err := s.LoadedCitations(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cases stored: %d\n", len(loaded))

		runs, err := s.ListRuns(ctx, 10)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}
		fmt.Println("recent runs:")
		for _, run := range runs {
			fmt.Printf("  %s  %-6s %-9s loaded=%d skipped=%d %s\n",
				run.StartedAt.Format("2006-01-02 15:04"),
				run.Kind, run.Status, run.CasesLoaded, run.CasesSkipped, run.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
