// Package syncer drives incremental synchronization of price bars,
// corporate actions, and fundamental snapshots for a set of securities.
// It owns the cursor arithmetic (where to resume), chunked range walking,
// revision drift detection, and the batch concurrency policy; providers
// fetch and the sink persists.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

// Sink persists normalized records and answers the cursor queries the
// syncer plans around. Implemented by the Postgres store.
type Sink interface {
	UpsertBars(ctx context.Context, bars []model.Bar) (int, error)
	UpsertAction(ctx context.Context, action model.CorporateAction) error
	UpsertFundamentalSnapshot(ctx context.Context, snap model.FundamentalSnapshot) error

	// MaxBarDate returns the newest stored bar date for the security, or
	// ok=false when no bars exist.
	MaxBarDate(ctx context.Context, securityID int64, interval model.Interval) (time.Time, bool, error)
	// BarsInRange returns stored close prices keyed by "2006-01-02" date.
	// Bars with no close are omitted.
	BarsInRange(ctx context.Context, securityID int64, interval model.Interval, r dates.Range) (map[string]float64, error)
	// DeleteBars removes the security's full bar history for the interval.
	DeleteBars(ctx context.Context, securityID int64, interval model.Interval) error

	// LatestActionExDate returns the newest stored ex-date from one source,
	// or ok=false when the source has no actions for the security.
	LatestActionExDate(ctx context.Context, securityID int64, source string) (time.Time, bool, error)
	// HasFundamentalSnapshot reports whether a snapshot from any source
	// exists for the as-of date.
	HasFundamentalSnapshot(ctx context.Context, securityID int64, asOf time.Time) (bool, error)
}

// BarSource fetches OHLCV history for a provider-native symbol.
type BarSource interface {
	Source() string
	Bars(ctx context.Context, symbol string, r dates.Range, interval model.Interval) ([]model.Bar, error)
}

// ActionSource fetches dividends and splits for a provider-native symbol.
// A zero from means full history.
type ActionSource interface {
	Source() string
	Actions(ctx context.Context, symbol string, from, to time.Time) ([]model.CorporateAction, error)
}

// FundamentalSource fetches current share statistics for a provider-native
// symbol.
type FundamentalSource interface {
	Source() string
	Fundamentals(ctx context.Context, symbol string) (model.FundamentalSnapshot, error)
}

// Target is one security to synchronize, with its provider-native symbols
// resolved up front so the syncer never does translation itself.
type Target struct {
	SecurityID  int64
	Symbol      string            // Canonical symbol, for logs and failures
	IndexSymbol string            // Index this target came from ("" for the index itself)
	Symbols     map[string]string // provider name -> native symbol
}

// symbolFor returns the provider-native symbol, falling back to the
// canonical one when no mapping was resolved.
func (t Target) symbolFor(provider string) string {
	if s, ok := t.Symbols[provider]; ok && s != "" {
		return s
	}
	return t.Symbol
}

// Config tunes the synchronization policy. Zero values take defaults.
type Config struct {
	Interval model.Interval

	// Start and End bound the fetch window. Zero Start means the history
	// floor; zero End means yesterday (the last complete session).
	Start time.Time
	End   time.Time

	// HistoryFloor is the earliest date ever fetched.
	HistoryFloor time.Time

	// LookbackDays re-fetches this many days before the cursor so late
	// revisions to recent bars are picked up.
	LookbackDays int

	// ChunkMaxDays caps the span of a single provider request.
	ChunkMaxDays int

	// DriftThreshold is the relative close-price deviation above which the
	// overlap window is considered revised and full history is re-fetched.
	DriftThreshold float64

	// ActionRecencyDays is how far back the newest stored action may be
	// while that (security, source) pair is still considered current and
	// skipped; older coverage triggers a fetch.
	ActionRecencyDays int

	// ActionOverlapDays is how far before the newest stored ex-date the
	// incremental action fetch starts.
	ActionOverlapDays int

	// Concurrency is the number of securities processed in parallel.
	Concurrency int
}

const (
	defaultLookbackDays      = 7
	defaultChunkMaxDays      = 4000
	defaultDriftThreshold    = 0.005
	defaultActionRecencyDays = 370
	defaultActionOverlapDays = 30
	defaultConcurrency       = 4
)

// defaultHistoryFloor is the earliest date requested when a security has no
// stored history.
var defaultHistoryFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

func (c Config) withDefaults() Config {
	if c.Interval == "" {
		c.Interval = model.Interval1d
	}
	if c.HistoryFloor.IsZero() {
		c.HistoryFloor = defaultHistoryFloor
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookbackDays
	}
	if c.ChunkMaxDays <= 0 {
		c.ChunkMaxDays = defaultChunkMaxDays
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = defaultDriftThreshold
	}
	if c.ActionRecencyDays <= 0 {
		c.ActionRecencyDays = defaultActionRecencyDays
	}
	if c.ActionOverlapDays <= 0 {
		c.ActionOverlapDays = defaultActionOverlapDays
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Syncer coordinates one synchronization run at a time.
type Syncer struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger
}

// New creates a Syncer writing to sink.
func New(cfg Config, sink Sink, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		cfg:    cfg.withDefaults(),
		sink:   sink,
		logger: logger,
	}
}

// floor returns the effective earliest fetch date.
func (s *Syncer) floor() time.Time {
	if !s.cfg.Start.IsZero() {
		return dates.Day(s.cfg.Start)
	}
	return dates.Day(s.cfg.HistoryFloor)
}

// end returns the effective latest fetch date.
func (s *Syncer) end() time.Time {
	if !s.cfg.End.IsZero() {
		return dates.Day(s.cfg.End)
	}
	return dates.Yesterday()
}

// run walks targets with bounded concurrency, collecting per-security
// outcomes into res. Quota exhaustion and context cancellation abort the
// whole batch; any other per-security error is recorded as a soft failure
// and the batch continues.
func (s *Syncer) run(ctx context.Context, targets []Target, res *Result, work func(ctx context.Context, t Target) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	var mu sync.Mutex
	for _, t := range targets {
		g.Go(func() error {
			err := work(ctx, t)
			if err == nil {
				return nil
			}
			if fetch.IsQuotaExhausted(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Warn("security sync failed",
				"symbol", t.Symbol,
				"security_id", t.SecurityID,
				"err", err,
			)
			mu.Lock()
			res.Failures = append(res.Failures, Failure{Symbol: t.Symbol, Err: err})
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}
