package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresInsertJudges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO judge \(judge_name\) VALUES \(\$1\), \(\$2\) ON CONFLICT DO NOTHING`).
		WithArgs("Bond", "Judy").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	// Duplicates and blanks are dropped before the insert.
	err := s.InsertJudges(context.Background(), []string{"Bond", " ", "Judy", "Bond"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertJudgesEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	err := s.InsertJudges(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertLawyers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	firmID := int64(3)
	mock.ExpectExec(`INSERT INTO lawyer \(lawyer_name, law_firm_id\) VALUES \(\$1, \$2\), \(\$3, \$4\) ON CONFLICT DO NOTHING`).
		WithArgs("Jane Smith", &firmID, "John Brown", (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	err := s.InsertLawyers(context.Background(), []LawyerRow{
		{Name: "Jane Smith", FirmID: &firmID},
		{Name: "John Brown"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJudgeMap(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT judge_name, judge_id FROM judge`).
		WillReturnRows(pgxmock.NewRows([]string{"judge_name", "judge_id"}).
			AddRow("Bond", int64(1)).
			AddRow("Judy", int64(2)))

	m, err := s.JudgeMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IDMap{"Bond": 1, "Judy": 2}, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLawyerIdentityMap(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT lawyer_name, COALESCE\(law_firm_id, 0\), lawyer_id FROM lawyer`).
		WillReturnRows(pgxmock.NewRows([]string{"lawyer_name", "coalesce", "lawyer_id"}).
			AddRow("Jane Smith", int64(3), int64(1)).
			AddRow("John Brown", int64(0), int64(2)))

	m, err := s.LawyerIdentityMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LawyerMap{
		{Name: "Jane Smith", FirmID: 3}: 1,
		{Name: "John Brown", FirmID: 0}: 2,
	}, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStartAndFinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ingest_run \(id, kind, status, started_at\)`).
		WithArgs(pgxmock.AnyArg(), "batch", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.StartRun(context.Background(), "batch")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)

	mock.ExpectExec(`UPDATE ingest_run SET status = \$1`).
		WithArgs("completed", 10, 2, "", pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = s.FinishRun(context.Background(), run.ID, RunCompleted, 10, 2, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE ingest_run SET status = \$1`).
		WithArgs("failed", 0, 0, "boom", pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing-run", RunFailed, 0, 0, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertCases(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO court_case`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertCases(context.Background(), []CaseRow{{
		Citation:       "[2024] EWCA Crim 1",
		Summary:        "summary",
		VerdictID:      1,
		Title:          "R v Doe",
		CaseNumber:     "CA-1",
		URL:            "https://example.test/1",
		CourtID:        1,
		VerdictSummary: "verdict summary",
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIDMapResolve(t *testing.T) {
	m := IDMap{"a": 1}
	got := m.Resolve([]string{"a", "z"})
	require.Len(t, got, 2)
	require.NotNil(t, got[0])
	assert.Equal(t, int64(1), *got[0])
	assert.Nil(t, got[1])
}
