package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "courtcase:v1:", cfg.Cache.KeyPrefix)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.InDelta(t, 0.1, cfg.OpenAI.Temperature, 0.001)
	assert.Equal(t, 16000, cfg.OpenAI.KeepHeadRunes)
	assert.Equal(t, "https://caselaw.nationalarchives.gov.uk", cfg.Scrape.BaseURL)
	assert.Equal(t, 50, cfg.Scrape.PerPage)
	assert.Equal(t, 95, cfg.Resolve.JudgeMatchCutoff)
	assert.InDelta(t, 0.9, cfg.Resolve.TagSimilarity, 0.001)
	assert.Equal(t, "file", cfg.Ledger.Backend)
	assert.Equal(t, "ingest-log.json", cfg.Ledger.Path)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: court.db
cache:
  backend: redis
  redis_addr: redis.internal:6379
resolve:
  judge_match_cutoff: 90
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "court.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 90, cfg.Resolve.JudgeMatchCutoff)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "nonsense", Format: "json"}))
}
