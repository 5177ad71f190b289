package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
)

// SyncActions brings every target's dividend and split history up to date.
// Every source is consulted for every target; each source's history is
// tracked independently, with its own cursor. A source whose newest stored
// ex-date is within the recency window is skipped outright; stale coverage
// is re-fetched from just before the last stored ex-date, and a security
// with no actions from that source yet gets the full history.
func (s *Syncer) SyncActions(ctx context.Context, sources []ActionSource, targets []Target) (*Result, error) {
	res := newResult(len(targets))
	var mu sync.Mutex

	err := s.run(ctx, targets, res, func(ctx context.Context, t Target) error {
		for _, src := range sources {
			upserted, skipped, err := s.syncSecurityActions(ctx, src, t)

			mu.Lock()
			res.ActionsUpserted += upserted
			if skipped {
				res.Skipped++
			}
			mu.Unlock()

			if err != nil {
				return err
			}
		}
		return nil
	})

	return res.finish(), err
}

func (s *Syncer) syncSecurityActions(ctx context.Context, src ActionSource, t Target) (int, bool, error) {
	latest, have, err := s.sink.LatestActionExDate(ctx, t.SecurityID, src.Source())
	if err != nil {
		return 0, false, err
	}

	// Coverage that is current enough costs nothing: a newest ex-date
	// inside the recency window means nothing new is expected yet.
	if have && latest.After(dates.AddDays(dates.Today(), -s.cfg.ActionRecencyDays)) {
		s.logger.Debug("actions current, skipping",
			"symbol", t.Symbol,
			"source", src.Source(),
			"latest", dates.FormatYMD(latest),
		)
		return 0, true, nil
	}

	var from time.Time
	if have {
		from = dates.AddDays(latest, -s.cfg.ActionOverlapDays)
		if from.Before(s.floor()) {
			from = s.floor()
		}
	}

	actions, err := src.Actions(ctx, t.symbolFor(src.Source()), from, time.Time{})
	if err != nil {
		return 0, false, err
	}

	upserted := 0
	for _, a := range actions {
		a.SecurityID = t.SecurityID
		if a.Source == "" {
			a.Source = src.Source()
		}
		if err := s.sink.UpsertAction(ctx, a); err != nil {
			return upserted, false, err
		}
		upserted++
	}

	s.logger.Debug("actions synced",
		"symbol", t.Symbol,
		"source", src.Source(),
		"upserted", upserted,
		"incremental", !from.IsZero(),
	)
	return upserted, false, nil
}
