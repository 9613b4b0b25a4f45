package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/LinfanS/court-transcripts-pipeline/internal/config"
	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS court (
	court_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	court_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS verdict (
	verdict_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	verdict    TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS judge (
	judge_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	judge_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tag (
	tag_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	tag_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS law_firm (
	law_firm_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	law_firm_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS participant (
	participant_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	participant_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lawyer (
	lawyer_id   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	lawyer_name TEXT NOT NULL,
	law_firm_id BIGINT REFERENCES law_firm(law_firm_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lawyer_identity
	ON lawyer (lawyer_name, COALESCE(law_firm_id, 0));

CREATE TABLE IF NOT EXISTS court_case (
	court_case_id   TEXT PRIMARY KEY,
	summary         TEXT NOT NULL,
	verdict_id      BIGINT NOT NULL REFERENCES verdict(verdict_id),
	title           TEXT NOT NULL,
	court_date      DATE,
	case_number     TEXT NOT NULL,
	case_url        TEXT NOT NULL,
	court_id        BIGINT NOT NULL REFERENCES court(court_id),
	verdict_summary TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_court_case_court ON court_case(court_id);
CREATE INDEX IF NOT EXISTS idx_court_case_date ON court_case(court_date);

CREATE TABLE IF NOT EXISTS judge_assignment (
	judge_assignment_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	court_case_id       TEXT NOT NULL REFERENCES court_case(court_case_id),
	judge_id            BIGINT NOT NULL REFERENCES judge(judge_id),
	UNIQUE (court_case_id, judge_id)
);

CREATE TABLE IF NOT EXISTS tag_assignment (
	tag_assignment_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	court_case_id     TEXT NOT NULL REFERENCES court_case(court_case_id),
	tag_id            BIGINT NOT NULL REFERENCES tag(tag_id),
	UNIQUE (court_case_id, tag_id)
);

CREATE TABLE IF NOT EXISTS participant_assignment (
	participant_assignment_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	court_case_id             TEXT NOT NULL REFERENCES court_case(court_case_id),
	participant_id            BIGINT NOT NULL REFERENCES participant(participant_id),
	lawyer_id                 BIGINT REFERENCES lawyer(lawyer_id),
	is_defendant              BOOLEAN NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_participant_assignment_identity
	ON participant_assignment (court_case_id, participant_id, COALESCE(lawyer_id, 0), is_defendant);

CREATE TABLE IF NOT EXISTS ingest_run (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	cases_loaded  INTEGER NOT NULL DEFAULT 0,
	cases_skipped INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_run_started ON ingest_run(started_at);
`

// Migrate creates the schema and seeds the closed verdict vocabulary.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	verdicts := model.AllVerdicts()
	values := make([]string, len(verdicts))
	args := make([]any, len(verdicts))
	for i, v := range verdicts {
		values[i] = fmt.Sprintf("($%d)", i+1)
		args[i] = string(v)
	}
	seed := "INSERT INTO verdict (verdict) VALUES " + strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, seed, args...); err != nil {
		return eris.Wrap(err, "postgres: seed verdicts")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// insertNames bulk-inserts distinct non-blank names into a single-column
// entity table, ignoring conflicts.
func (s *PostgresStore) insertNames(ctx context.Context, table, column string, names []string) error {
	var values []string
	var args []any
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		args = append(args, name)
		values = append(values, fmt.Sprintf("($%d)", len(args)))
	}
	if len(args) == 0 {
		return nil
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING",
		table, column, strings.Join(values, ", "))
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrapf(err, "postgres: insert %s", table)
	}
	return nil
}

func (s *PostgresStore) InsertCourts(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "court", "court_name", names)
}

func (s *PostgresStore) InsertJudges(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "judge", "judge_name", names)
}

func (s *PostgresStore) InsertTags(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "tag", "tag_name", names)
}

func (s *PostgresStore) InsertLawFirms(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "law_firm", "law_firm_name", names)
}

func (s *PostgresStore) InsertParticipants(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "participant", "participant_name", names)
}

func (s *PostgresStore) InsertLawyers(ctx context.Context, rows []LawyerRow) error {
	if len(rows) == 0 {
		return nil
	}
	var values []string
	var args []any
	for _, r := range rows {
		args = append(args, r.Name, r.FirmID)
		values = append(values, fmt.Sprintf("($%d, $%d)", len(args)-1, len(args)))
	}
	sql := "INSERT INTO lawyer (lawyer_name, law_firm_id) VALUES " +
		strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "postgres: insert lawyer")
	}
	return nil
}

func (s *PostgresStore) InsertCases(ctx context.Context, rows []CaseRow) error {
	if len(rows) == 0 {
		return nil
	}
	var values []string
	var args []any
	for _, r := range rows {
		args = append(args,
			r.Citation, r.Summary, r.VerdictID, r.Title, r.Date,
			r.CaseNumber, r.URL, r.CourtID, r.VerdictSummary,
		)
		base := len(args) - 9
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
	}
	sql := `INSERT INTO court_case
		(court_case_id, summary, verdict_id, title, court_date, case_number, case_url, court_id, verdict_summary)
		VALUES ` + strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "postgres: insert court_case")
	}
	return nil
}

func (s *PostgresStore) InsertJudgeAssignments(ctx context.Context, rows []JudgeAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	var values []string
	var args []any
	for _, r := range rows {
		args = append(args, r.Citation, r.JudgeID)
		values = append(values, fmt.Sprintf("($%d, $%d)", len(args)-1, len(args)))
	}
	sql := "INSERT INTO judge_assignment (court_case_id, judge_id) VALUES " +
		strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "postgres: insert judge_assignment")
	}
	return nil
}

func (s *PostgresStore) InsertTagAssignments(ctx context.Context, rows []TagAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	var values []string
	var args []any
	for _, r := range rows {
		args = append(args, r.Citation, r.TagID)
		values = append(values, fmt.Sprintf("($%d, $%d)", len(args)-1, len(args)))
	}
	sql := "INSERT INTO tag_assignment (court_case_id, tag_id) VALUES " +
		strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "postgres: insert tag_assignment")
	}
	return nil
}

func (s *PostgresStore) InsertParticipantAssignments(ctx context.Context, rows []ParticipantAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	var values []string
	var args []any
	for _, r := range rows {
		args = append(args, r.Citation, r.ParticipantID, r.LawyerID, r.IsDefendant)
		base := len(args) - 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
	}
	sql := `INSERT INTO participant_assignment
		(court_case_id, participant_id, lawyer_id, is_defendant)
		VALUES ` + strings.Join(values, ", ") + " ON CONFLICT DO NOTHING"
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrap(err, "postgres: insert participant_assignment")
	}
	return nil
}

func (s *PostgresStore) idMap(ctx context.Context, sql, what string) (IDMap, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s map", what)
	}
	defer rows.Close()

	m := make(IDMap)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s map", what)
		}
		m[name] = id
	}
	return m, eris.Wrapf(rows.Err(), "postgres: read %s map", what)
}

func (s *PostgresStore) CourtMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT court_name, court_id FROM court", "court")
}

func (s *PostgresStore) VerdictMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT verdict, verdict_id FROM verdict", "verdict")
}

func (s *PostgresStore) JudgeMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT judge_name, judge_id FROM judge", "judge")
}

func (s *PostgresStore) TagMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT tag_name, tag_id FROM tag", "tag")
}

func (s *PostgresStore) LawFirmMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT law_firm_name, law_firm_id FROM law_firm", "law_firm")
}

func (s *PostgresStore) ParticipantMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT participant_name, participant_id FROM participant", "participant")
}

func (s *PostgresStore) LawyerIdentityMap(ctx context.Context) (LawyerMap, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT lawyer_name, COALESCE(law_firm_id, 0), lawyer_id FROM lawyer")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query lawyer map")
	}
	defer rows.Close()

	m := make(LawyerMap)
	for rows.Next() {
		var key LawyerKey
		var id int64
		if err := rows.Scan(&key.Name, &key.FirmID, &id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lawyer map")
		}
		m[key] = id
	}
	return m, eris.Wrap(rows.Err(), "postgres: read lawyer map")
}

func (s *PostgresStore) stringColumn(ctx context.Context, sql, what string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s", what)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", what)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: read %s", what)
}

func (s *PostgresStore) JudgeNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, "SELECT judge_name FROM judge", "judge names")
}

func (s *PostgresStore) LoadedCitations(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, "SELECT court_case_id FROM court_case", "citations")
}

func (s *PostgresStore) StartRun(ctx context.Context, kind string) (*IngestRun, error) {
	run := &IngestRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_run (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Kind, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert ingest_run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus, loaded, skipped int, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_run SET status = $1, cases_loaded = $2, cases_skipped = $3, error = $4, finished_at = $5 WHERE id = $6`,
		string(status), loaded, skipped, errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, status, cases_loaded, cases_skipped, error, started_at, finished_at
		 FROM ingest_run ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		var status string
		if err := rows.Scan(&r.ID, &r.Kind, &status, &r.CasesLoaded, &r.CasesSkipped,
			&r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: read runs")
}
