package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It mirrors the
// PostgreSQL schema closely enough that the loader cannot tell them apart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS court (
	court_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	court_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS verdict (
	verdict_id INTEGER PRIMARY KEY AUTOINCREMENT,
	verdict    TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS judge (
	judge_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	judge_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tag (
	tag_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	tag_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS law_firm (
	law_firm_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	law_firm_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS participant (
	participant_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	participant_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lawyer (
	lawyer_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	lawyer_name TEXT NOT NULL,
	law_firm_id INTEGER REFERENCES law_firm(law_firm_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lawyer_identity
	ON lawyer (lawyer_name, COALESCE(law_firm_id, 0));

CREATE TABLE IF NOT EXISTS court_case (
	court_case_id   TEXT PRIMARY KEY,
	summary         TEXT NOT NULL,
	verdict_id      INTEGER NOT NULL REFERENCES verdict(verdict_id),
	title           TEXT NOT NULL,
	court_date      TEXT,
	case_number     TEXT NOT NULL,
	case_url        TEXT NOT NULL,
	court_id        INTEGER NOT NULL REFERENCES court(court_id),
	verdict_summary TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_court_case_court ON court_case(court_id);
CREATE INDEX IF NOT EXISTS idx_court_case_date ON court_case(court_date);

CREATE TABLE IF NOT EXISTS judge_assignment (
	judge_assignment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	court_case_id       TEXT NOT NULL REFERENCES court_case(court_case_id),
	judge_id            INTEGER NOT NULL REFERENCES judge(judge_id),
	UNIQUE (court_case_id, judge_id)
);

CREATE TABLE IF NOT EXISTS tag_assignment (
	tag_assignment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	court_case_id     TEXT NOT NULL REFERENCES court_case(court_case_id),
	tag_id            INTEGER NOT NULL REFERENCES tag(tag_id),
	UNIQUE (court_case_id, tag_id)
);

CREATE TABLE IF NOT EXISTS participant_assignment (
	participant_assignment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	court_case_id             TEXT NOT NULL REFERENCES court_case(court_case_id),
	participant_id            INTEGER NOT NULL REFERENCES participant(participant_id),
	lawyer_id                 INTEGER REFERENCES lawyer(lawyer_id),
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
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	for _, v := range model.AllVerdicts() {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO verdict (verdict) VALUES (?) ON CONFLICT DO NOTHING", string(v)); err != nil {
			return eris.Wrap(err, "sqlite: seed verdicts")
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) insertNames(ctx context.Context, table, column string, names []string) error {
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
		values = append(values, "(?)")
	}
	if len(args) == 0 {
		return nil
	}
	sqlText := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING",
		table, column, strings.Join(values, ", "))
	if _, err := s.db.ExecContext(ctx, sqlText, args...); err != nil {
		return eris.Wrapf(err, "sqlite: insert %s", table)
	}
	return nil
}

func (s *SQLiteStore) InsertCourts(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "court", "court_name", names)
}

func (s *SQLiteStore) InsertJudges(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "judge", "judge_name", names)
}

func (s *SQLiteStore) InsertTags(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "tag", "tag_name", names)
}

func (s *SQLiteStore) InsertLawFirms(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "law_firm", "law_firm_name", names)
}

func (s *SQLiteStore) InsertParticipants(ctx context.Context, names []string) error {
	return s.insertNames(ctx, "participant", "participant_name", names)
}

func (s *SQLiteStore) InsertLawyers(ctx context.Context, rows []LawyerRow) error {
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO lawyer (lawyer_name, law_firm_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			r.Name, r.FirmID); err != nil {
			return eris.Wrap(err, "sqlite: insert lawyer")
		}
	}
	return nil
}

func (s *SQLiteStore) InsertCases(ctx context.Context, rows []CaseRow) error {
	for _, r := range rows {
		var date any
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO court_case
			 (court_case_id, summary, verdict_id, title, court_date, case_number, case_url, court_id, verdict_summary)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			r.Citation, r.Summary, r.VerdictID, r.Title, date,
			r.CaseNumber, r.URL, r.CourtID, r.VerdictSummary); err != nil {
			return eris.Wrap(err, "sqlite: insert court_case")
		}
	}
	return nil
}

func (s *SQLiteStore) InsertJudgeAssignments(ctx context.Context, rows []JudgeAssignment) error {
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO judge_assignment (court_case_id, judge_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			r.Citation, r.JudgeID); err != nil {
			return eris.Wrap(err, "sqlite: insert judge_assignment")
		}
	}
	return nil
}

func (s *SQLiteStore) InsertTagAssignments(ctx context.Context, rows []TagAssignment) error {
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO tag_assignment (court_case_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			r.Citation, r.TagID); err != nil {
			return eris.Wrap(err, "sqlite: insert tag_assignment")
		}
	}
	return nil
}

func (s *SQLiteStore) InsertParticipantAssignments(ctx context.Context, rows []ParticipantAssignment) error {
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO participant_assignment (court_case_id, participant_id, lawyer_id, is_defendant)
			 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			r.Citation, r.ParticipantID, r.LawyerID, r.IsDefendant); err != nil {
			return eris.Wrap(err, "sqlite: insert participant_assignment")
		}
	}
	return nil
}

func (s *SQLiteStore) idMap(ctx context.Context, sqlText, what string) (IDMap, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s map", what)
	}
	defer rows.Close()

	m := make(IDMap)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s map", what)
		}
		m[name] = id
	}
	return m, eris.Wrapf(rows.Err(), "sqlite: read %s map", what)
}

func (s *SQLiteStore) CourtMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT court_name, court_id FROM court", "court")
}

func (s *SQLiteStore) VerdictMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT verdict, verdict_id FROM verdict", "verdict")
}

func (s *SQLiteStore) JudgeMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT judge_name, judge_id FROM judge", "judge")
}

func (s *SQLiteStore) TagMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT tag_name, tag_id FROM tag", "tag")
}

func (s *SQLiteStore) LawFirmMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT law_firm_name, law_firm_id FROM law_firm", "law_firm")
}

func (s *SQLiteStore) ParticipantMap(ctx context.Context) (IDMap, error) {
	return s.idMap(ctx, "SELECT participant_name, participant_id FROM participant", "participant")
}

func (s *SQLiteStore) LawyerIdentityMap(ctx context.Context) (LawyerMap, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lawyer_name, COALESCE(law_firm_id, 0), lawyer_id FROM lawyer")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query lawyer map")
	}
	defer rows.Close()

	m := make(LawyerMap)
	for rows.Next() {
		var key LawyerKey
		var id int64
		if err := rows.Scan(&key.Name, &key.FirmID, &id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lawyer map")
		}
		m[key] = id
	}
	return m, eris.Wrap(rows.Err(), "sqlite: read lawyer map")
}

func (s *SQLiteStore) stringColumn(ctx context.Context, sqlText, what string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", what)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", what)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: read %s", what)
}

func (s *SQLiteStore) JudgeNames(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, "SELECT judge_name FROM judge", "judge names")
}

func (s *SQLiteStore) LoadedCitations(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, "SELECT court_case_id FROM court_case", "citations")
}

func (s *SQLiteStore) StartRun(ctx context.Context, kind string) (*IngestRun, error) {
	run := &IngestRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ingest_run (id, kind, status, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Kind, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert ingest_run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus, loaded, skipped int, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ingest_run SET status = ?, cases_loaded = ?, cases_skipped = ?, error = ?, finished_at = ? WHERE id = ?",
		string(status), loaded, skipped, errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: finish run rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, status, cases_loaded, cases_skipped, error, started_at, finished_at
		 FROM ingest_run ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		var status string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &status, &r.CasesLoaded, &r.CasesSkipped,
			&r.Error, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = RunStatus(status)
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: read runs")
}
