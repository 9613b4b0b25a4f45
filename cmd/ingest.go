package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestMaxPages int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the batch pipeline over the case-law archive",
	Long:  "Scrapes every listing page, enriches each judgment not yet in the database, and loads the results. Safe to re-run: loaded citations are skipped and inserts are idempotent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ingestMaxPages > 0 {
			cfg.Pipeline.MaxPages = ingestMaxPages
		}

		e, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.Pipeline.RunBatch(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("batch ingest complete",
			zap.Int("pages", summary.Pages),
			zap.Int("loaded", summary.Loaded),
			zap.Int("skipped", summary.Skipped),
			zap.Int("aborted", summary.Aborted),
		)
		return abortedErr(summary.Aborted)
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "stop after this many listing pages (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
