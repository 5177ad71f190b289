package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/model"
)

// UpsertBars writes bars with ON CONFLICT DO UPDATE on the
// (security, interval, date) key, so revised values replace stored ones.
// Returns the number of rows written.
func (s *Store) UpsertBars(ctx context.Context, bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(`
			INSERT INTO bars (security_id, interval, bar_date, open, high, low, close, volume, currency, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (security_id, interval, bar_date) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume,
				currency = EXCLUDED.currency,
				source = EXCLUDED.source
		`, b.SecurityID, b.Interval, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.Currency, b.Source)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range bars {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("upsert bars: %w", err)
		}
		written++
	}
	return written, nil
}

// MaxBarDate returns the newest stored bar date for the security, or
// ok=false when no bars exist.
func (s *Store) MaxBarDate(ctx context.Context, securityID int64, interval model.Interval) (time.Time, bool, error) {
	var max *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT MAX(bar_date)
		FROM bars
		WHERE security_id = $1 AND interval = $2
	`, securityID, interval).Scan(&max)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query max bar date: %w", err)
	}
	if max == nil {
		return time.Time{}, false, nil
	}
	return dates.Day(*max), true, nil
}

// BarsInRange returns stored close prices keyed by "2006-01-02" date.
// Bars whose close is NULL are omitted.
func (s *Store) BarsInRange(ctx context.Context, securityID int64, interval model.Interval, r dates.Range) (map[string]float64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT bar_date, close
		FROM bars
		WHERE security_id = $1 AND interval = $2
		  AND bar_date BETWEEN $3 AND $4
		  AND close IS NOT NULL
	`, securityID, interval, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("query bars in range: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var d time.Time
		var close float64
		if err := rows.Scan(&d, &close); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out[dates.FormatYMD(d)] = close
	}
	return out, rows.Err()
}

// DeleteBars removes the security's entire bar history for the interval.
// Used when revision drift invalidates the stored series.
func (s *Store) DeleteBars(ctx context.Context, securityID int64, interval model.Interval) error {
	ct, err := s.db.Exec(ctx, `
		DELETE FROM bars
		WHERE security_id = $1 AND interval = $2
	`, securityID, interval)
	if err != nil {
		return fmt.Errorf("delete bars: %w", err)
	}
	s.logger.Info("bar history deleted",
		"security_id", securityID,
		"interval", interval,
		"rows", ct.RowsAffected(),
	)
	return nil
}
