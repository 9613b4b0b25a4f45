package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LinfanS/court-transcripts-pipeline/internal/scrape"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the judge table from the judiciary.uk membership lists",
	Long:  "Crawls the public judiciary membership lists and inserts every judge name, so transcript judge mentions can be fuzzy-matched to a canonical registry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		names, err := scrape.NewClient(cfg.Scrape).JudgeNames(ctx)
		if err != nil {
			return err
		}
		if err := s.InsertJudges(ctx, names); err != nil {
			return err
		}

		stored, err := s.JudgeNames(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("judge registry seeded",
			zap.Int("crawled", len(names)),
			zap.Int("stored", len(stored)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
