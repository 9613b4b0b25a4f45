package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Ingest judgments published since the last live run",
	Long:  "Reads the progress ledger for the current start date, scrapes only judgments from that date onward, loads them, and advances the ledger. Intended to run on a schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		ledger, err := newLedger(ctx)
		if err != nil {
			return err
		}

		summary, err := e.Pipeline.RunLive(ctx, ledger)
		if err != nil {
			return err
		}
		zap.L().Info("live ingest complete",
			zap.Int("pages", summary.Pages),
			zap.Int("loaded", summary.Loaded),
			zap.Int("skipped", summary.Skipped),
			zap.Int("aborted", summary.Aborted),
		)
		return abortedErr(summary.Aborted)
	},
}

func init() {
	rootCmd.AddCommand(liveCmd)
}
