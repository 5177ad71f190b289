package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultProviderTimeout = 20 * time.Second
	DefaultMaxRetries      = 4
	DefaultBackoffBase     = 1 * time.Second
	DefaultBackoffCap      = 30 * time.Second

	// Per-minute request ceilings. Stooq bans aggressively, so it gets the
	// most conservative default.
	DefaultStooqRPM = 30
	DefaultEODHDRPM = 60
	DefaultYahooRPM = 60

	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) data-collector/1.0"

	DefaultInterval          = "1d"
	DefaultHistoryFloor      = "1900-01-01"
	DefaultLookbackDays      = 7
	DefaultChunkMaxDays      = 4000
	DefaultDriftThreshold    = 0.005
	DefaultActionRecencyDays = 370
	DefaultActionOverlapDays = 30
	DefaultSyncConcurrency   = 4

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

func (c *Config) applyDefaults() {
	applyDBDefaults(&c.Database.Postgres)

	applyProviderDefaults(&c.Providers.Stooq, DefaultStooqRPM)
	applyProviderDefaults(&c.Providers.EODHD, DefaultEODHDRPM)
	applyProviderDefaults(&c.Providers.Yahoo, DefaultYahooRPM)

	// Sync defaults
	if c.Sync.Interval == "" {
		c.Sync.Interval = DefaultInterval
	}
	if c.Sync.HistoryFloor == "" {
		c.Sync.HistoryFloor = DefaultHistoryFloor
	}
	if c.Sync.LookbackDays == 0 {
		c.Sync.LookbackDays = DefaultLookbackDays
	}
	if c.Sync.ChunkMaxDays == 0 {
		c.Sync.ChunkMaxDays = DefaultChunkMaxDays
	}
	if c.Sync.DriftThreshold == 0 {
		c.Sync.DriftThreshold = DefaultDriftThreshold
	}
	if c.Sync.ActionRecencyDays == 0 {
		c.Sync.ActionRecencyDays = DefaultActionRecencyDays
	}
	if c.Sync.ActionOverlapDays == 0 {
		c.Sync.ActionOverlapDays = DefaultActionOverlapDays
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = DefaultSyncConcurrency
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyProviderDefaults(p *ProviderConfig, rpm int) {
	if p.UserAgent == "" {
		p.UserAgent = DefaultUserAgent
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultProviderTimeout
	}
	if p.MaxRequestsPerMinute == 0 {
		p.MaxRequestsPerMinute = rpm
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BackoffBase == 0 {
		p.BackoffBase = DefaultBackoffBase
	}
	if p.BackoffCap == 0 {
		p.BackoffCap = DefaultBackoffCap
	}
}
