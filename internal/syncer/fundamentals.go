package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
)

// SyncFundamentals captures at most one snapshot per security per day.
// Sources are tried in region order: Hong Kong listings prefer eodhd,
// everything else prefers yahoo, with the remaining sources as fallback.
// A security already snapshotted today is skipped without any fetches.
func (s *Syncer) SyncFundamentals(ctx context.Context, sources []FundamentalSource, targets []Target) (*Result, error) {
	res := newResult(len(targets))
	var mu sync.Mutex

	err := s.run(ctx, targets, res, func(ctx context.Context, t Target) error {
		upserted, skipped, err := s.syncSecurityFundamentals(ctx, sources, t)

		mu.Lock()
		if upserted {
			res.SnapshotsUpserted++
		}
		if skipped {
			res.Skipped++
		}
		mu.Unlock()

		return err
	})

	return res.finish(), err
}

func (s *Syncer) syncSecurityFundamentals(ctx context.Context, sources []FundamentalSource, t Target) (upserted, skipped bool, err error) {
	asOf := dates.Today()

	exists, err := s.sink.HasFundamentalSnapshot(ctx, t.SecurityID, asOf)
	if err != nil {
		return false, false, err
	}
	if exists {
		return false, true, nil
	}

	var lastErr error
	for _, src := range orderSources(sources, t) {
		snap, err := src.Fundamentals(ctx, t.symbolFor(src.Source()))
		if err != nil {
			if fetch.IsQuotaExhausted(err) || ctx.Err() != nil {
				return false, false, err
			}
			s.logger.Debug("fundamental source failed, trying next",
				"symbol", t.Symbol,
				"source", src.Source(),
				"err", err,
			)
			lastErr = err
			continue
		}

		snap.SecurityID = t.SecurityID
		snap.AsOfDate = asOf
		if err := s.sink.UpsertFundamentalSnapshot(ctx, snap); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	if lastErr != nil {
		return false, false, fmt.Errorf("all fundamental sources failed: %w", lastErr)
	}
	return false, false, fmt.Errorf("no fundamental source available for %s", t.Symbol)
}

// orderSources returns sources with the region-preferred provider first.
func orderSources(sources []FundamentalSource, t Target) []FundamentalSource {
	primary := "yahoo"
	if isHongKong(t) {
		primary = "eodhd"
	}

	ordered := make([]FundamentalSource, 0, len(sources))
	for _, src := range sources {
		if src.Source() == primary {
			ordered = append(ordered, src)
		}
	}
	for _, src := range sources {
		if src.Source() != primary {
			ordered = append(ordered, src)
		}
	}
	return ordered
}

func isHongKong(t Target) bool {
	if strings.HasSuffix(strings.ToUpper(t.Symbol), ".HK") {
		return true
	}
	idx := strings.ToUpper(t.IndexSymbol)
	return idx == "^HSI" || idx == "^HSTECH" || strings.HasPrefix(idx, "^HK")
}
