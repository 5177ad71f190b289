package store

import (
	"context"
	"fmt"
	"time"

	"github.com/stock-platform/data-collector/internal/model"
)

// UpsertFundamentalSnapshot writes a snapshot keyed by
// (security, as-of date, source).
func (s *Store) UpsertFundamentalSnapshot(ctx context.Context, snap model.FundamentalSnapshot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO fundamental_snapshots (security_id, as_of_date, shares_outstanding, float_shares, market_cap, currency, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (security_id, as_of_date, source) DO UPDATE SET
			shares_outstanding = EXCLUDED.shares_outstanding,
			float_shares = EXCLUDED.float_shares,
			market_cap = EXCLUDED.market_cap,
			currency = EXCLUDED.currency
	`, snap.SecurityID, snap.AsOfDate, snap.SharesOutstanding, snap.FloatShares, snap.MarketCap, snap.Currency, snap.Source)
	if err != nil {
		return fmt.Errorf("upsert fundamental snapshot: %w", err)
	}
	return nil
}

// HasFundamentalSnapshot reports whether any source has a snapshot for the
// as-of date. One snapshot per day is enough; fundamentals move slowly.
func (s *Store) HasFundamentalSnapshot(ctx context.Context, securityID int64, asOf time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM fundamental_snapshots
			WHERE security_id = $1 AND as_of_date = $2
		)
	`, securityID, asOf).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query fundamental snapshot existence: %w", err)
	}
	return exists, nil
}
