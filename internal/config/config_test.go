package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
database:
  postgres:
    host: localhost
    name: marketdata
    user: collector
    password: ${TEST_DB_PASSWORD}

providers:
  eodhd:
    api_token: demo

sync:
  interval: 1d
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Postgres.Password != "s3cret" {
		t.Errorf("password = %q, want expanded env var", cfg.Database.Postgres.Password)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := LoadWithDefaults(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}

	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("db port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Providers.Stooq.MaxRequestsPerMinute != DefaultStooqRPM {
		t.Errorf("stooq rpm = %d, want default %d", cfg.Providers.Stooq.MaxRequestsPerMinute, DefaultStooqRPM)
	}
	if cfg.Providers.EODHD.APIToken != "demo" {
		t.Errorf("eodhd token = %q, want demo", cfg.Providers.EODHD.APIToken)
	}
	if cfg.Sync.DriftThreshold != DefaultDriftThreshold {
		t.Errorf("drift threshold = %g, want default %g", cfg.Sync.DriftThreshold, DefaultDriftThreshold)
	}
	if cfg.Sync.HistoryFloor != DefaultHistoryFloor {
		t.Errorf("history floor = %q, want default", cfg.Sync.HistoryFloor)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %s/%s, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadAndValidateAcceptsValidConfig(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	if _, err := LoadAndValidate(writeConfig(t, validYAML)); err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Database.Postgres = DBConfig{
			Host: "localhost", Name: "marketdata", User: "collector", Password: "pw",
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing db host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host",
		},
		{
			name:    "missing db password",
			mutate:  func(c *Config) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password",
		},
		{
			name:    "min conns over max",
			mutate:  func(c *Config) { c.Database.Postgres.MinConns = 20 },
			wantErr: "min_conns",
		},
		{
			name:    "bad interval",
			mutate:  func(c *Config) { c.Sync.Interval = "5m" },
			wantErr: "sync.interval",
		},
		{
			name:    "bad history floor",
			mutate:  func(c *Config) { c.Sync.HistoryFloor = "01/01/1900" },
			wantErr: "history_floor",
		},
		{
			name:    "drift threshold too large",
			mutate:  func(c *Config) { c.Sync.DriftThreshold = 1.5 },
			wantErr: "drift_threshold",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
