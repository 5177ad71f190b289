// Package store persists securities, bars, corporate actions, and
// fundamental snapshots in PostgreSQL. All writes are idempotent upserts on
// natural keys, so re-running a sync never duplicates rows.
package store

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stock-platform/data-collector/internal/syncer"
)

// Store is the PostgreSQL persistence layer.
type Store struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

var _ syncer.Sink = (*Store)(nil)

// New creates a Store using the given pool.
func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}
