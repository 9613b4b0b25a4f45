// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	OpenAI   OpenAIConfig   `yaml:"openai" mapstructure:"openai"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the relational store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the enrichment cache store.
type CacheConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // "redis", "memory" or "off"
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLHours  int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// OpenAIConfig holds summarization model settings.
type OpenAIConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	Temperature    float32 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	KeepHeadRunes  int     `yaml:"keep_head_runes" mapstructure:"keep_head_runes"`
	KeepTailRunes  int     `yaml:"keep_tail_runes" mapstructure:"keep_tail_runes"`
	RequestsPerMin int     `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	MaxConcurrent  int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ScrapeConfig configures the case-law listing scraper.
type ScrapeConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	PerPage     int    `yaml:"per_page" mapstructure:"per_page"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResolveConfig configures entity resolution thresholds.
type ResolveConfig struct {
	JudgeMatchCutoff int     `yaml:"judge_match_cutoff" mapstructure:"judge_match_cutoff"`
	TagSimilarity    float64 `yaml:"tag_similarity" mapstructure:"tag_similarity"`
}

// LedgerConfig configures the incremental progress ledger.
type LedgerConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // "file" or "redis"
	Path      string `yaml:"path" mapstructure:"path"`
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisKey  string `yaml:"redis_key" mapstructure:"redis_key"`
}

// PipelineConfig configures batch processing.
type PipelineConfig struct {
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// ServerConfig configures the read-only query API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COURT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("cache.key_prefix", "courtcase:v1:")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.timeout_secs", 60)
	v.SetDefault("openai.keep_head_runes", 16000)
	v.SetDefault("openai.keep_tail_runes", 16000)
	v.SetDefault("openai.requests_per_min", 60)
	v.SetDefault("openai.max_concurrent", 5)
	v.SetDefault("scrape.base_url", "https://caselaw.nationalarchives.gov.uk")
	v.SetDefault("scrape.per_page", 50)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("resolve.judge_match_cutoff", 95)
	v.SetDefault("resolve.tag_similarity", 0.9)
	v.SetDefault("ledger.backend", "file")
	v.SetDefault("ledger.path", "ingest-log.json")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.redis_key", "courtcase:ledger")
	v.SetDefault("pipeline.max_pages", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
