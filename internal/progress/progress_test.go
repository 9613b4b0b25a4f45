package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceRollsOverPastDate(t *testing.T) {
	yesterday := time.Date(2024, 8, 11, 14, 30, 0, 0, time.UTC)
	today := time.Date(2024, 8, 12, 9, 0, 0, 0, time.UTC)

	date, citations := Advance(yesterday, []string{"[2024] UKSC 1"}, today)
	assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), date)
	assert.Empty(t, citations)
}

func TestAdvanceKeepsSameDay(t *testing.T) {
	morning := time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 8, 12, 23, 0, 0, 0, time.UTC)

	date, citations := Advance(morning, []string{"[2024] UKSC 1"}, evening)
	assert.Equal(t, morning, date)
	assert.Equal(t, []string{"[2024] UKSC 1"}, citations)
}

func TestFileLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ledger := NewFileLedger(path)

	date := time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Write(context.Background(), date, []string{"[2024] UKSC 1", "[2024] EWCA Crim 2"}))

	got, citations, err := ledger.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, date, got)
	assert.Equal(t, []string{"[2024] UKSC 1", "[2024] EWCA Crim 2"}, citations)
}

func TestFileLedgerMissingFileInitializes(t *testing.T) {
	ledger := NewFileLedger(filepath.Join(t.TempDir(), "absent.json"))

	date, citations, err := ledger.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, citations)

	today := time.Now().UTC()
	assert.Equal(t, time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), date)
}

func TestFileLedgerWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ledger := NewFileLedger(path)

	date := time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Write(context.Background(), date, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"12-08-2024": []}`, string(raw))
}

func TestFileLedgerCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewFileLedger(path).Read(context.Background())
	require.Error(t, err)
}

func TestDecodeBadDate(t *testing.T) {
	_, _, err := decode([]byte(`{"2024-08-12": []}`))
	require.Error(t, err)

	_, _, err = decode([]byte(`{}`))
	require.Error(t, err)
}
