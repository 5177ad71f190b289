package store

import (
	"context"
	"fmt"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/model"
)

// UpsertAction writes a corporate action keyed by
// (security, ex-date, type, source). Re-fetched events update in place.
func (s *Store) UpsertAction(ctx context.Context, a model.CorporateAction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO corporate_actions (security_id, ex_date, action_type, cash_amount, currency, split_numerator, split_denominator, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (security_id, ex_date, action_type, source) DO UPDATE SET
			cash_amount = EXCLUDED.cash_amount,
			currency = EXCLUDED.currency,
			split_numerator = EXCLUDED.split_numerator,
			split_denominator = EXCLUDED.split_denominator
	`, a.SecurityID, a.ExDate, a.Type, a.CashAmount, a.Currency, a.SplitNumerator, a.SplitDenominator, a.Source)
	if err != nil {
		return fmt.Errorf("upsert corporate action: %w", err)
	}
	return nil
}

// LatestActionExDate returns the newest stored ex-date from one source, or
// ok=false when the source has no actions for the security.
func (s *Store) LatestActionExDate(ctx context.Context, securityID int64, source string) (time.Time, bool, error) {
	var max *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT MAX(ex_date)
		FROM corporate_actions
		WHERE security_id = $1 AND source = $2
	`, securityID, source).Scan(&max)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest action ex-date: %w", err)
	}
	if max == nil {
		return time.Time{}, false, nil
	}
	return dates.Day(*max), true, nil
}
