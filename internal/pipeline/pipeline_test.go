package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
	"github.com/LinfanS/court-transcripts-pipeline/internal/progress"
	"github.com/LinfanS/court-transcripts-pipeline/internal/resolve"
	"github.com/LinfanS/court-transcripts-pipeline/internal/store"
)

type fakeScraper struct {
	cases []model.RawCase
}

func (f *fakeScraper) MaxPage(ctx context.Context, from *time.Time) (int, error) {
	return 1, nil
}

func (f *fakeScraper) Listing(ctx context.Context, page int, from *time.Time, already map[string]struct{}) ([]model.RawCase, error) {
	var out []model.RawCase
	for _, c := range f.cases {
		if _, loaded := already[c.Citation]; !loaded {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeEnricher struct {
	failFor map[string]bool
}

func (f *fakeEnricher) Enrich(ctx context.Context, citation, transcript string) (*model.Enrichment, error) {
	if f.failFor[citation] {
		return nil, eris.New("model unavailable")
	}
	firm := "Dewey LLP"
	return &model.Enrichment{
		Verdict:        "Guilty",
		Summary:        "Summary of " + citation,
		CaseNumber:     "CA-1",
		VerdictSummary: "Convicted.",
		Judges:         []string{"THE HONOURABLE MR JUSTICE JACOB"},
		Tags:           []string{"Fraud"},
		FirstSide:      model.RawSide{"Crown": {"Jane Smith": &firm}},
		SecondSide:     model.RawSide{"John Doe": nil},
	}, nil
}

func rawCase(citation string) model.RawCase {
	return model.RawCase{
		Title:    "R v Doe",
		URL:      "https://caselaw.example/" + citation,
		Court:    "Court of Appeal Criminal Division",
		Citation: citation,
		Date:     "07 Apr 2024",
		RawText:  "judgment text",
	}
}

func newTestPipeline(t *testing.T, scraper Scraper, enricher Enricher) (*Pipeline, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "cases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	thesaurus, err := resolve.LoadThesaurus()
	require.NoError(t, err)

	p := New(Options{
		Store:         s,
		Scraper:       scraper,
		Enricher:      enricher,
		Judges:        resolve.NewJudgeResolver(95),
		Tags:          resolve.NewTagCanonicalizer(thesaurus, 0.9),
		MaxConcurrent: 2,
	})
	return p, s
}

func TestRunBatch(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1"), rawCase("[2024] EWCA Crim 2")}}
	p, s := newTestPipeline(t, scraper, &fakeEnricher{})

	summary, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 0, summary.Skipped)

	citations, err := s.LoadedCitations(context.Background())
	require.NoError(t, err)
	assert.Len(t, citations, 2)

	runs, err := s.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "batch", runs[0].Kind)
	assert.Equal(t, store.RunCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].CasesLoaded)
}

func TestRunBatchSecondRunSkipsLoaded(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1")}}
	p, _ := newTestPipeline(t, scraper, &fakeEnricher{})

	_, err := p.RunBatch(context.Background())
	require.NoError(t, err)

	summary, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Loaded)
	assert.Empty(t, summary.Citations)
}

func TestRunBatchEnrichmentFailureDropsCase(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1"), rawCase("[2024] EWCA Crim 2")}}
	enricher := &fakeEnricher{failFor: map[string]bool{"[2024] EWCA Crim 2": true}}
	p, s := newTestPipeline(t, scraper, enricher)

	summary, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 1, summary.Skipped)

	citations, err := s.LoadedCitations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[2024] EWCA Crim 1"}, citations)
}

func TestRunBatchResolvesJudgeAgainstRegistry(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1")}}
	p, s := newTestPipeline(t, scraper, &fakeEnricher{})

	// Seed the registry the way the seed command would.
	require.NoError(t, s.InsertJudges(context.Background(), []string{"Jacob"}))

	_, err := p.RunBatch(context.Background())
	require.NoError(t, err)

	cases, err := s.SearchCases(context.Background(), store.CaseFilter{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"Jacob"}, cases[0].Judges)
}

func TestRunLiveWritesLedger(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1")}}
	p, _ := newTestPipeline(t, scraper, &fakeEnricher{})

	ledger := progress.NewFileLedger(filepath.Join(t.TempDir(), "ledger.json"))
	summary, err := p.RunLive(context.Background(), ledger)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)

	_, citations, err := ledger.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[2024] EWCA Crim 1"}, citations)
}

func TestRunLiveSkipsLedgeredCitations(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1"), rawCase("[2024] EWCA Crim 2")}}
	p, _ := newTestPipeline(t, scraper, &fakeEnricher{})

	path := filepath.Join(t.TempDir(), "ledger.json")
	ledger := progress.NewFileLedger(path)
	today := time.Now().UTC()
	require.NoError(t, ledger.Write(context.Background(), today, []string{"[2024] EWCA Crim 1"}))

	summary, err := p.RunLive(context.Background(), ledger)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, []string{"[2024] EWCA Crim 2"}, summary.Citations)

	_, citations, err := ledger.Read(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"[2024] EWCA Crim 1", "[2024] EWCA Crim 2"}, citations)
}

type pagedScraper struct {
	pages   map[int][]model.RawCase
	failing map[int]bool
}

func (f *pagedScraper) MaxPage(ctx context.Context, from *time.Time) (int, error) {
	return len(f.pages) + len(f.failing), nil
}

func (f *pagedScraper) Listing(ctx context.Context, page int, from *time.Time, already map[string]struct{}) ([]model.RawCase, error) {
	if f.failing[page] {
		return nil, eris.New("listing fetch failed")
	}
	return f.pages[page], nil
}

func TestRunBatchAbortedPageDoesNotStopRun(t *testing.T) {
	scraper := &pagedScraper{
		pages:   map[int][]model.RawCase{2: {rawCase("[2024] EWCA Crim 9")}},
		failing: map[int]bool{1: true},
	}
	p, s := newTestPipeline(t, scraper, &fakeEnricher{})

	summary, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Aborted)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 1, summary.Loaded)

	citations, err := s.LoadedCitations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[2024] EWCA Crim 9"}, citations)
}

type brokenLedger struct{}

func (brokenLedger) Read(ctx context.Context) (time.Time, []string, error) {
	return time.Time{}, nil, eris.New("ledger store down")
}

func (brokenLedger) Write(ctx context.Context, date time.Time, citations []string) error {
	return eris.New("ledger store down")
}

func TestRunLiveBrokenLedgerStillCompletes(t *testing.T) {
	scraper := &fakeScraper{cases: []model.RawCase{rawCase("[2024] EWCA Crim 1")}}
	p, s := newTestPipeline(t, scraper, &fakeEnricher{})

	summary, err := p.RunLive(context.Background(), brokenLedger{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)

	runs, err := s.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunCompleted, runs[0].Status)
}
