package config

import (
	"fmt"
	"time"

	"github.com/stock-platform/data-collector/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if !model.Interval(c.Sync.Interval).Valid() {
		return fmt.Errorf("sync.interval %q is not one of 1d, 1w, 1m, 1q, 1y", c.Sync.Interval)
	}
	if _, err := time.Parse("2006-01-02", c.Sync.HistoryFloor); err != nil {
		return fmt.Errorf("sync.history_floor must be YYYY-MM-DD: %w", err)
	}
	if c.Sync.DriftThreshold < 0 || c.Sync.DriftThreshold >= 1 {
		return fmt.Errorf("sync.drift_threshold must be in [0, 1), got %g", c.Sync.DriftThreshold)
	}
	if c.Sync.LookbackDays < 0 {
		return fmt.Errorf("sync.lookback_days must be >= 0")
	}
	if c.Sync.ChunkMaxDays < 1 {
		return fmt.Errorf("sync.chunk_max_days must be >= 1")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be >= 1")
	}

	for _, p := range []struct {
		name string
		cfg  ProviderConfig
	}{
		{"providers.stooq", c.Providers.Stooq},
		{"providers.eodhd", c.Providers.EODHD},
		{"providers.yahoo", c.Providers.Yahoo},
	} {
		if p.cfg.MaxRequestsPerMinute < 0 {
			return fmt.Errorf("%s.max_requests_per_minute must be >= 0", p.name)
		}
		if p.cfg.MaxRetries < 0 {
			return fmt.Errorf("%s.max_retries must be >= 0", p.name)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
