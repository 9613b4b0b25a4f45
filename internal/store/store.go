// Package store persists resolved case records in the normalized relational
// schema. Two backends implement the same interface: PostgreSQL via pgxpool
// for production and SQLite via modernc.org/sqlite for local runs.
//
// Every insert is idempotent: ON CONFLICT DO NOTHING against the natural-key
// uniqueness constraints, so reloading a batch never duplicates rows.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/LinfanS/court-transcripts-pipeline/internal/config"
)

// IDMap maps an entity's natural key (its name) to its surrogate id.
type IDMap map[string]int64

// Resolve converts names to ids, preserving order. Unknown names resolve to
// nil rather than failing, so one unresolvable entity skips one association
// instead of aborting a batch.
func (m IDMap) Resolve(names []string) []*int64 {
	out := make([]*int64, len(names))
	for i, name := range names {
		if id, ok := m[name]; ok {
			v := id
			out[i] = &v
		}
	}
	return out
}

// LawyerKey identifies a lawyer row: the same name at two different firms is
// two lawyers. FirmID is 0 when the lawyer has no recorded firm.
type LawyerKey struct {
	Name   string
	FirmID int64
}

// LawyerMap maps lawyer identity to lawyer id.
type LawyerMap map[LawyerKey]int64

// LawyerRow is one lawyer to insert. FirmID is nil when no firm is recorded.
type LawyerRow struct {
	Name   string
	FirmID *int64
}

// CaseRow is one court_case row, with entity references already resolved.
type CaseRow struct {
	Citation       string
	Summary        string
	VerdictID      int64
	Title          string
	Date           *time.Time
	CaseNumber     string
	URL            string
	CourtID        int64
	VerdictSummary string
}

// JudgeAssignment links a case to one of its judges.
type JudgeAssignment struct {
	Citation string
	JudgeID  int64
}

// TagAssignment links a case to one of its tags.
type TagAssignment struct {
	Citation string
	TagID    int64
}

// ParticipantAssignment links a case to a participant and, when represented,
// that participant's lawyer.
type ParticipantAssignment struct {
	Citation      string
	ParticipantID int64
	LawyerID      *int64
	IsDefendant   bool
}

// RunStatus is the lifecycle state of one ingest run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IngestRun is one recorded pipeline invocation.
type IngestRun struct {
	ID           string
	Kind         string
	Status       RunStatus
	CasesLoaded  int
	CasesSkipped int
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// CaseFilter selects cases for the read API. String filters are substring
// matches, case-insensitive.
type CaseFilter struct {
	Title   string
	Court   string
	Judge   string
	Tag     string
	Verdict string
	Limit   int
	Offset  int
}

// CaseSummary is one case as returned by the read API.
type CaseSummary struct {
	Citation       string     `json:"citation"`
	Title          string     `json:"title"`
	Court          string     `json:"court"`
	Date           *time.Time `json:"date,omitempty"`
	CaseNumber     string     `json:"case_number"`
	URL            string     `json:"url"`
	Verdict        string     `json:"verdict"`
	VerdictSummary string     `json:"verdict_summary"`
	Summary        string     `json:"summary"`
	Judges         []string   `json:"judges"`
	Tags           []string   `json:"tags"`
}

// NamedCount is an entity name with the number of cases referencing it.
type NamedCount struct {
	Name  string `json:"name"`
	Cases int64  `json:"cases"`
}

// Store is the persistence interface for the loader, the seeder and the
// read API.
type Store interface {
	// Entity inserts. All are idempotent; blank names are ignored.
	InsertCourts(ctx context.Context, names []string) error
	InsertJudges(ctx context.Context, names []string) error
	InsertTags(ctx context.Context, names []string) error
	InsertLawFirms(ctx context.Context, names []string) error
	InsertParticipants(ctx context.Context, names []string) error
	InsertLawyers(ctx context.Context, rows []LawyerRow) error

	// Case inserts.
	InsertCases(ctx context.Context, rows []CaseRow) error
	InsertJudgeAssignments(ctx context.Context, rows []JudgeAssignment) error
	InsertTagAssignments(ctx context.Context, rows []TagAssignment) error
	InsertParticipantAssignments(ctx context.Context, rows []ParticipantAssignment) error

	// Name-to-id mappings, read back after the corresponding insert phase.
	CourtMap(ctx context.Context) (IDMap, error)
	VerdictMap(ctx context.Context) (IDMap, error)
	JudgeMap(ctx context.Context) (IDMap, error)
	TagMap(ctx context.Context) (IDMap, error)
	LawFirmMap(ctx context.Context) (IDMap, error)
	ParticipantMap(ctx context.Context) (IDMap, error)
	LawyerIdentityMap(ctx context.Context) (LawyerMap, error)

	// JudgeNames returns every canonical judge name, for fuzzy matching.
	JudgeNames(ctx context.Context) ([]string, error)
	// LoadedCitations returns the citation of every stored case.
	LoadedCitations(ctx context.Context) ([]string, error)

	// Run log.
	StartRun(ctx context.Context, kind string) (*IngestRun, error)
	FinishRun(ctx context.Context, runID string, status RunStatus, loaded, skipped int, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]IngestRun, error)

	// Read API queries.
	SearchCases(ctx context.Context, filter CaseFilter) ([]CaseSummary, error)
	CourtCounts(ctx context.Context, search string, limit int) ([]NamedCount, error)
	JudgeCounts(ctx context.Context, search string, limit int) ([]NamedCount, error)
	TagCounts(ctx context.Context, search string, limit int) ([]NamedCount, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store configured by cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
