package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
)

// SyncPrices brings every target's bar history up to the end of the window.
// Each security resumes from its own cursor (newest stored bar minus the
// lookback), walks the remaining range in chunks, and upserts after every
// chunk so partial progress survives a failure. When the overlap window
// shows revised closes, the security's history is wiped and re-fetched from
// the floor, at most once per run.
func (s *Syncer) SyncPrices(ctx context.Context, src BarSource, targets []Target) (*Result, error) {
	res := newResult(len(targets))
	var mu sync.Mutex

	err := s.run(ctx, targets, res, func(ctx context.Context, t Target) error {
		upserted, refetched, skipped, err := s.syncSecurityPrices(ctx, src, t)

		mu.Lock()
		res.BarsUpserted += upserted
		if refetched {
			res.FullRefetches++
		}
		if skipped {
			res.Skipped++
		}
		mu.Unlock()

		return err
	})

	return res.finish(), err
}

func (s *Syncer) syncSecurityPrices(ctx context.Context, src BarSource, t Target) (upserted int, refetched, skipped bool, err error) {
	interval := s.cfg.Interval
	floor := s.floor()
	end := s.end()

	cursor, have, err := s.sink.MaxBarDate(ctx, t.SecurityID, interval)
	if err != nil {
		return 0, false, false, err
	}

	start := floor
	if have {
		start = dates.AddDays(cursor, -s.cfg.LookbackDays)
		if start.Before(floor) {
			start = floor
		}
	}
	if start.After(end) {
		s.logger.Debug("prices up to date",
			"symbol", t.Symbol,
			"cursor", dates.FormatYMD(cursor),
		)
		return 0, false, true, nil
	}

	symbol := t.symbolFor(src.Source())
	chunks, err := dates.Chunks(start, end, s.cfg.ChunkMaxDays)
	if err != nil {
		return 0, false, false, err
	}

	driftChecked := false
	for ch := range chunks {
		bars, err := src.Bars(ctx, symbol, ch, interval)
		if errors.Is(err, fetch.ErrNoData) {
			continue
		}
		if err != nil {
			return upserted, false, false, err
		}
		for i := range bars {
			bars[i].SecurityID = t.SecurityID
		}

		// The first chunk reaching back to the cursor carries the overlap
		// window; compare it against stored closes before writing.
		if have && !driftChecked && !ch.Start.After(cursor) {
			driftChecked = true
			date, dev, drifted, err := s.overlapDrift(ctx, t, bars, ch, cursor)
			if err != nil {
				return upserted, false, false, err
			}
			if drifted {
				s.logger.Info("revision drift detected, re-fetching full history",
					"symbol", t.Symbol,
					"date", date,
					"deviation", dev,
				)
				n, err := s.refetchHistory(ctx, src, t, symbol, floor, end)
				return upserted + n, true, false, err
			}
		}

		n, err := s.sink.UpsertBars(ctx, bars)
		upserted += n
		if err != nil {
			return upserted, false, false, err
		}
	}

	return upserted, false, false, nil
}

// refetchHistory wipes the security's bar history and reloads it from the
// floor. No drift checks apply; the fetched series is authoritative.
func (s *Syncer) refetchHistory(ctx context.Context, src BarSource, t Target, symbol string, floor, end time.Time) (int, error) {
	if err := s.sink.DeleteBars(ctx, t.SecurityID, s.cfg.Interval); err != nil {
		return 0, err
	}

	chunks, err := dates.Chunks(floor, end, s.cfg.ChunkMaxDays)
	if err != nil {
		return 0, err
	}

	upserted := 0
	for ch := range chunks {
		bars, err := src.Bars(ctx, symbol, ch, s.cfg.Interval)
		if errors.Is(err, fetch.ErrNoData) {
			continue
		}
		if err != nil {
			return upserted, err
		}
		for i := range bars {
			bars[i].SecurityID = t.SecurityID
		}
		n, err := s.sink.UpsertBars(ctx, bars)
		upserted += n
		if err != nil {
			return upserted, err
		}
	}
	return upserted, nil
}
