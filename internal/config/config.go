package config

import "time"

// Config is the root configuration for a collector run.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Sync      SyncConfig      `yaml:"sync"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds the PostgreSQL connection for normalized market data.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ProvidersConfig holds per-provider client settings.
type ProvidersConfig struct {
	Stooq ProviderConfig `yaml:"stooq"`
	EODHD ProviderConfig `yaml:"eodhd"`
	Yahoo ProviderConfig `yaml:"yahoo"`
}

// ProviderConfig holds one upstream provider's client settings. APIToken is
// only meaningful for providers that require one (eodhd).
type ProviderConfig struct {
	BaseURL              string        `yaml:"base_url"`
	APIToken             string        `yaml:"api_token"`
	UserAgent            string        `yaml:"user_agent"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRequestsPerMinute int           `yaml:"max_requests_per_minute"`
	MaxRetries           int           `yaml:"max_retries"`
	BackoffBase          time.Duration `yaml:"backoff_base"`
	BackoffCap           time.Duration `yaml:"backoff_cap"`
}

// SyncConfig tunes the synchronization policy.
type SyncConfig struct {
	Interval          string  `yaml:"interval"`      // 1d, 1w, 1m, 1q, 1y
	HistoryFloor      string  `yaml:"history_floor"` // YYYY-MM-DD
	LookbackDays      int     `yaml:"lookback_days"`
	ChunkMaxDays      int     `yaml:"chunk_max_days"`
	DriftThreshold    float64 `yaml:"drift_threshold"`
	ActionRecencyDays int     `yaml:"action_recency_days"`
	ActionOverlapDays int     `yaml:"action_overlap_days"`
	Concurrency       int     `yaml:"concurrency"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
