// Package pipeline drives the ingestion flow: scrape listing pages, enrich
// each judgment, resolve judges and tags against the store, and load the
// batch idempotently. One listing page is one batch; a case that fails
// enrichment or validation is dropped and logged, never the whole run.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LinfanS/court-transcripts-pipeline/internal/enrich"
	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
	"github.com/LinfanS/court-transcripts-pipeline/internal/progress"
	"github.com/LinfanS/court-transcripts-pipeline/internal/resolve"
	"github.com/LinfanS/court-transcripts-pipeline/internal/store"
)

// Scraper is the listing source. *scrape.Client implements it.
type Scraper interface {
	MaxPage(ctx context.Context, from *time.Time) (int, error)
	Listing(ctx context.Context, page int, from *time.Time, alreadyLoaded map[string]struct{}) ([]model.RawCase, error)
}

// Enricher produces the structured record for one judgment. *enrich.Gate
// implements it.
type Enricher interface {
	Enrich(ctx context.Context, citation, transcript string) (*model.Enrichment, error)
}

// Pipeline wires the stages together.
type Pipeline struct {
	store         store.Store
	loader        *store.Loader
	scraper       Scraper
	enricher      Enricher
	judges        *resolve.JudgeResolver
	tags          *resolve.TagCanonicalizer
	maxConcurrent int
	maxPages      int
}

// Options configures a Pipeline.
type Options struct {
	Store         store.Store
	Scraper       Scraper
	Enricher      Enricher
	Judges        *resolve.JudgeResolver
	Tags          *resolve.TagCanonicalizer
	MaxConcurrent int
	MaxPages      int
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Pipeline{
		store:         opts.Store,
		loader:        store.NewLoader(opts.Store),
		scraper:       opts.Scraper,
		enricher:      opts.Enricher,
		judges:        opts.Judges,
		tags:          opts.Tags,
		maxConcurrent: maxConcurrent,
		maxPages:      opts.MaxPages,
	}
}

// Summary reports what one run did. Aborted counts pages whose batch write
// failed partway; their remaining phases were skipped and the run moved on.
type Summary struct {
	Pages     int
	Loaded    int
	Skipped   int
	Aborted   int
	Citations []string
}

// RunBatch ingests the whole archive (or up to the configured page cap),
// skipping citations already present in the store.
func (p *Pipeline) RunBatch(ctx context.Context) (*Summary, error) {
	run, err := p.store.StartRun(ctx, "batch")
	if err != nil {
		return nil, err
	}

	already, err := p.loadedSet(ctx)
	if err != nil {
		return nil, p.fail(ctx, run.ID, err)
	}

	summary, err := p.runPages(ctx, nil, already)
	if err != nil {
		return summary, p.fail(ctx, run.ID, err)
	}
	return summary, p.finish(ctx, run.ID, summary)
}

// RunLive ingests judgments published since the ledger date, then advances
// the ledger.
func (p *Pipeline) RunLive(ctx context.Context, ledger progress.Ledger) (*Summary, error) {
	run, err := p.store.StartRun(ctx, "live")
	if err != nil {
		return nil, err
	}

	date, logged, err := ledger.Read(ctx)
	if err != nil {
		zap.L().Warn("pipeline: ledger unavailable, starting from today", zap.Error(err))
		date = time.Now().UTC().Truncate(24 * time.Hour)
		logged = nil
	}

	already, err := p.loadedSet(ctx)
	if err != nil {
		return nil, p.fail(ctx, run.ID, err)
	}
	for _, c := range logged {
		already[c] = struct{}{}
	}

	summary, err := p.runPages(ctx, &date, already)
	if err != nil {
		return summary, p.fail(ctx, run.ID, err)
	}

	// Advance runs after this run's citations are appended, so the first run
	// of a new day rolls the ledger to (today, empty), discarding that run's
	// citations from the log. The store's loaded-citation set is what stops
	// replay; the ledger list only short-circuits same-day re-scrapes.
	nextDate, nextLog := progress.Advance(date, append(logged, summary.Citations...), time.Now().UTC())
	if err := ledger.Write(ctx, nextDate, nextLog); err != nil {
		zap.L().Warn("pipeline: ledger write failed, progress not persisted", zap.Error(err))
	}
	return summary, p.finish(ctx, run.ID, summary)
}

func (p *Pipeline) runPages(ctx context.Context, from *time.Time, already map[string]struct{}) (*Summary, error) {
	summary := &Summary{}

	maxPage, err := p.scraper.MaxPage(ctx, from)
	if err != nil {
		return summary, err
	}
	if p.maxPages > 0 && maxPage > p.maxPages {
		maxPage = p.maxPages
	}
	zap.L().Info("pipeline: starting", zap.Int("pages", maxPage))

	for page := 1; page <= maxPage; page++ {
		loaded, skipped, citations, err := p.processPage(ctx, page, from, already)
		if err != nil {
			if ctx.Err() != nil {
				return summary, err
			}
			zap.L().Error("pipeline: page aborted", zap.Int("page", page), zap.Error(err))
			summary.Aborted++
			continue
		}
		summary.Pages++
		summary.Loaded += loaded
		summary.Skipped += skipped
		summary.Citations = append(summary.Citations, citations...)
		zap.L().Info("pipeline: page done",
			zap.Int("page", page),
			zap.Int("loaded", loaded),
			zap.Int("skipped", skipped),
			zap.Int("total_loaded", summary.Loaded),
		)
	}
	return summary, nil
}

// processPage turns one listing page into one loaded batch.
func (p *Pipeline) processPage(ctx context.Context, page int, from *time.Time, already map[string]struct{}) (loaded, skipped int, citations []string, err error) {
	rawCases, err := p.scraper.Listing(ctx, page, from, already)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(rawCases) == 0 {
		return 0, 0, nil, nil
	}

	records, dropped := p.enrichAll(ctx, rawCases)
	skipped += dropped

	batch := p.resolveBatch(ctx, records)

	result, err := p.loader.Load(ctx, batch)
	if err != nil {
		return 0, skipped, nil, err
	}
	skipped += result.Skipped

	for _, c := range batch.Citations() {
		already[c] = struct{}{}
	}
	return result.Loaded, skipped, batch.Citations(), nil
}

// enrichAll runs enrichment for a page's cases concurrently. Per-case
// failures drop the case; only context cancellation aborts the page.
func (p *Pipeline) enrichAll(ctx context.Context, rawCases []model.RawCase) ([]model.CaseRecord, int) {
	records := make([]*model.CaseRecord, len(rawCases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for i, raw := range rawCases {
		g.Go(func() error {
			e, err := p.enricher.Enrich(gctx, raw.Citation, raw.RawText)
			if err != nil {
				zap.L().Warn("pipeline: enrichment failed",
					zap.String("citation", raw.Citation),
					zap.Error(err),
				)
				return gctx.Err()
			}
			rec, err := enrich.BuildRecord(raw, e)
			if err != nil {
				zap.L().Warn("pipeline: dropping invalid record",
					zap.String("citation", raw.Citation),
					zap.Any("enrichment", e),
					zap.Error(err),
				)
				return nil
			}
			records[i] = &rec
			return nil
		})
	}
	// Errors are only ever context cancellation; each case logged its own.
	_ = g.Wait()

	out := make([]model.CaseRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, len(rawCases) - len(out)
}

// resolveBatch canonicalizes tags across the page and matches judges against
// the stored registry.
func (p *Pipeline) resolveBatch(ctx context.Context, records []model.CaseRecord) *model.Batch {
	perCase := make([][]string, len(records))
	for i, rec := range records {
		perCase[i] = rec.Tags
	}
	rewritten := p.tags.Canonicalize(perCase)

	canonical, err := p.store.JudgeNames(ctx)
	if err != nil {
		zap.L().Warn("pipeline: judge registry unavailable, keeping raw names", zap.Error(err))
		canonical = nil
	}

	batch := &model.Batch{Cases: make([]model.CaseRecord, len(records))}
	for i, rec := range records {
		rec.Tags = rewritten[i]
		judges := make([]string, len(rec.Judges))
		for j, raw := range rec.Judges {
			judges[j] = p.judges.Resolve(raw, canonical)
		}
		rec.Judges = judges
		batch.Cases[i] = rec
	}
	return batch
}

func (p *Pipeline) loadedSet(ctx context.Context) (map[string]struct{}, error) {
	citations, err := p.store.LoadedCitations(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		set[c] = struct{}{}
	}
	return set, nil
}

func (p *Pipeline) finish(ctx context.Context, runID string, s *Summary) error {
	return p.store.FinishRun(ctx, runID, store.RunCompleted, s.Loaded, s.Skipped, "")
}

func (p *Pipeline) fail(ctx context.Context, runID string, cause error) error {
	loaded, skipped := 0, 0
	if err := p.store.FinishRun(ctx, runID, store.RunFailed, loaded, skipped, cause.Error()); err != nil {
		zap.L().Warn("pipeline: failed to record run failure", zap.Error(err))
	}
	return cause
}
