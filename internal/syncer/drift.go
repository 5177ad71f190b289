package syncer

import (
	"context"
	"math"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/model"
)

// overlapDrift compares the freshly fetched overlap bars against the stored
// close prices for the same dates. It returns the first drifting date and
// its relative deviation.
func (s *Syncer) overlapDrift(ctx context.Context, t Target, fetched []model.Bar, ch dates.Range, cursor time.Time) (string, float64, bool, error) {
	overlap := dates.Range{Start: ch.Start, End: cursor}
	if ch.End.Before(cursor) {
		overlap.End = ch.End
	}

	stored, err := s.sink.BarsInRange(ctx, t.SecurityID, s.cfg.Interval, overlap)
	if err != nil {
		return "", 0, false, err
	}
	if len(stored) == 0 {
		return "", 0, false, nil
	}

	date, dev := driftingDate(fetched, stored, s.cfg.DriftThreshold)
	return date, dev, date != "", nil
}

// driftingDate returns the first date (ascending) whose fetched close
// deviates from the stored close by strictly more than threshold, relative
// to the stored value. Dates missing on either side are ignored, as are
// stored closes of zero: with no meaningful baseline there is nothing to
// drift from.
func driftingDate(fetched []model.Bar, stored map[string]float64, threshold float64) (string, float64) {
	for _, bar := range fetched {
		if bar.Close == nil {
			continue
		}
		key := dates.FormatYMD(bar.Date)
		old, ok := stored[key]
		if !ok || old == 0 {
			continue
		}
		dev := math.Abs(*bar.Close-old) / math.Abs(old)
		if dev > threshold {
			return key, dev
		}
	}
	return "", 0
}
