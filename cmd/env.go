package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/LinfanS/court-transcripts-pipeline/internal/cache"
	"github.com/LinfanS/court-transcripts-pipeline/internal/enrich"
	"github.com/LinfanS/court-transcripts-pipeline/internal/pipeline"
	"github.com/LinfanS/court-transcripts-pipeline/internal/progress"
	"github.com/LinfanS/court-transcripts-pipeline/internal/resolve"
	"github.com/LinfanS/court-transcripts-pipeline/internal/scrape"
	"github.com/LinfanS/court-transcripts-pipeline/internal/store"
)

// env holds the wired-up subsystems a command needs.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	closers  []func() error
}

func (e *env) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// openStore connects the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// initPipeline wires every pipeline stage from configuration.
func initPipeline(ctx context.Context) (*env, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	e := &env{Store: s, closers: []func() error{s.Close}}

	enrichmentCache, err := newEnrichmentCache(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	summarizer, err := enrich.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		e.Close()
		return nil, err
	}

	thesaurus, err := resolve.LoadThesaurus()
	if err != nil {
		e.Close()
		return nil, err
	}

	e.Pipeline = pipeline.New(pipeline.Options{
		Store:         s,
		Scraper:       scrape.NewClient(cfg.Scrape),
		Enricher:      enrich.NewGate(enrichmentCache, summarizer),
		Judges:        resolve.NewJudgeResolver(cfg.Resolve.JudgeMatchCutoff),
		Tags:          resolve.NewTagCanonicalizer(thesaurus, cfg.Resolve.TagSimilarity),
		MaxConcurrent: cfg.OpenAI.MaxConcurrent,
		MaxPages:      cfg.Pipeline.MaxPages,
	})
	return e, nil
}

func newEnrichmentCache(ctx context.Context) (cache.Store, error) {
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.KeyPrefix, ttl)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory", "":
		return cache.NewMemory(ttl), nil
	case "off":
		return cache.Nop{}, nil
	default:
		return nil, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// abortedErr turns aborted page batches into a non-zero exit without
// masking that the rest of the run went through.
func abortedErr(aborted int) error {
	if aborted == 0 {
		return nil
	}
	return eris.Errorf("%d page batch(es) aborted, see logs", aborted)
}

func newLedger(ctx context.Context) (progress.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "file", "":
		return progress.NewFileLedger(cfg.Ledger.Path), nil
	case "redis":
		return progress.NewRedisLedger(ctx, cfg.Ledger.RedisAddr, cfg.Ledger.RedisKey)
	default:
		return nil, eris.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
