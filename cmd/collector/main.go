package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stock-platform/data-collector/internal/config"
	"github.com/stock-platform/data-collector/internal/database"
	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
	"github.com/stock-platform/data-collector/internal/provider/eodhd"
	"github.com/stock-platform/data-collector/internal/provider/stooq"
	"github.com/stock-platform/data-collector/internal/provider/yahoo"
	"github.com/stock-platform/data-collector/internal/store"
	"github.com/stock-platform/data-collector/internal/syncer"
	"github.com/stock-platform/data-collector/internal/universe"
	"github.com/stock-platform/data-collector/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	mode := flag.String("mode", "prices", "what to sync: prices, actions, fundamentals")
	index := flag.String("index", "", "canonical index symbol to sync (default: all built-in)")
	start := flag.String("start", "", "override fetch window start (YYYY-MM-DD)")
	end := flag.String("end", "", "override fetch window end (YYYY-MM-DD)")
	interval := flag.String("interval", "", "override bar interval (1d, 1w, 1m, 1q, 1y)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"mode", *mode,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, logger)

	syncCfg, err := buildSyncConfig(cfg.Sync, *start, *end, *interval)
	if err != nil {
		logger.Error("invalid sync options", "error", err)
		os.Exit(1)
	}
	s := syncer.New(syncCfg, st, logger)

	roots, err := selectRoots(*index)
	if err != nil {
		logger.Error("unknown index", "error", err)
		os.Exit(1)
	}

	targets, err := resolveTargets(ctx, st, roots, logger)
	if err != nil {
		logger.Error("failed to resolve targets", "error", err)
		os.Exit(1)
	}
	logger.Info("universe resolved", "securities", len(targets))

	var res *syncer.Result
	switch *mode {
	case "prices":
		src := stooq.New(providerConfig(cfg.Providers.Stooq), logger)
		res, err = s.SyncPrices(ctx, src, targets)
	case "actions":
		sources := []syncer.ActionSource{
			eodhd.New(eodhdConfig(cfg.Providers.EODHD), logger),
			yahoo.New(yahooConfig(cfg.Providers.Yahoo), logger),
		}
		res, err = s.SyncActions(ctx, sources, targets)
	case "fundamentals":
		sources := []syncer.FundamentalSource{
			yahoo.New(yahooConfig(cfg.Providers.Yahoo), logger),
			eodhd.New(eodhdConfig(cfg.Providers.EODHD), logger),
		}
		res, err = s.SyncFundamentals(ctx, sources, targets)
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}

	if res != nil {
		logger.Info("run finished",
			"run_id", res.RunID,
			"duration", res.Duration(),
			"securities", res.SecuritiesScanned,
			"bars_upserted", res.BarsUpserted,
			"actions_upserted", res.ActionsUpserted,
			"snapshots_upserted", res.SnapshotsUpserted,
			"skipped", res.Skipped,
			"full_refetches", res.FullRefetches,
			"failures", len(res.Failures),
		)
		for _, f := range res.Failures {
			logger.Warn("sync failure", "symbol", f.Symbol, "error", f.Err)
		}
	}
	if err != nil {
		if fetch.IsQuotaExhausted(err) {
			logger.Warn("provider quota exhausted, run aborted", "error", err)
			os.Exit(2)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// buildSyncConfig turns file config plus flag overrides into the syncer's
// policy.
func buildSyncConfig(sc config.SyncConfig, start, end, interval string) (syncer.Config, error) {
	floor, err := dates.ParseYMD(sc.HistoryFloor)
	if err != nil {
		return syncer.Config{}, fmt.Errorf("parse history floor: %w", err)
	}

	cfg := syncer.Config{
		Interval:          model.Interval(sc.Interval),
		HistoryFloor:      floor,
		LookbackDays:      sc.LookbackDays,
		ChunkMaxDays:      sc.ChunkMaxDays,
		DriftThreshold:    sc.DriftThreshold,
		ActionRecencyDays: sc.ActionRecencyDays,
		ActionOverlapDays: sc.ActionOverlapDays,
		Concurrency:       sc.Concurrency,
	}

	if interval != "" {
		iv := model.Interval(interval)
		if !iv.Valid() {
			return syncer.Config{}, fmt.Errorf("invalid interval %q", interval)
		}
		cfg.Interval = iv
	}
	if start != "" {
		if cfg.Start, err = dates.ParseYMD(start); err != nil {
			return syncer.Config{}, fmt.Errorf("parse start: %w", err)
		}
	}
	if end != "" {
		if cfg.End, err = dates.ParseYMD(end); err != nil {
			return syncer.Config{}, fmt.Errorf("parse end: %w", err)
		}
	}
	return cfg, nil
}

func selectRoots(index string) ([]universe.Index, error) {
	if index == "" {
		return universe.Builtin(), nil
	}
	idx, ok := universe.FindBuiltin(strings.ToUpper(index))
	if !ok {
		return nil, errors.New("no built-in index " + index)
	}
	return []universe.Index{idx}, nil
}

// resolveTargets upserts the index roots and gathers them plus their
// current constituents as sync targets.
func resolveTargets(ctx context.Context, st *store.Store, roots []universe.Index, logger *slog.Logger) ([]syncer.Target, error) {
	var targets []syncer.Target
	for _, root := range roots {
		id, err := st.UpsertSecurity(ctx, root.Security)
		if err != nil {
			return nil, err
		}
		for provider, ident := range root.Identifiers {
			err := st.UpsertIdentifier(ctx, model.SecurityIdentifier{
				SecurityID: id,
				Provider:   provider,
				Identifier: ident,
				Primary:    true,
			})
			if err != nil {
				return nil, err
			}
		}
		targets = append(targets, universe.IndexTarget(root, id))

		members, err := universe.Targets(ctx, st, root, id)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			logger.Debug("index has no stored constituents",
				"index", root.Security.CanonicalSymbol,
			)
		}
		targets = append(targets, members...)
	}
	return targets, nil
}

func providerConfig(p config.ProviderConfig) stooq.Config {
	return stooq.Config{
		BaseURL:              p.BaseURL,
		UserAgent:            p.UserAgent,
		Timeout:              p.Timeout,
		MaxRequestsPerMinute: p.MaxRequestsPerMinute,
		MaxRetries:           p.MaxRetries,
		BackoffBase:          p.BackoffBase,
		BackoffCap:           p.BackoffCap,
	}
}

func eodhdConfig(p config.ProviderConfig) eodhd.Config {
	return eodhd.Config{
		BaseURL:              p.BaseURL,
		APIToken:             p.APIToken,
		UserAgent:            p.UserAgent,
		Timeout:              p.Timeout,
		MaxRequestsPerMinute: p.MaxRequestsPerMinute,
		MaxRetries:           p.MaxRetries,
		BackoffBase:          p.BackoffBase,
		BackoffCap:           p.BackoffCap,
	}
}

func yahooConfig(p config.ProviderConfig) yahoo.Config {
	return yahoo.Config{
		BaseURL:              p.BaseURL,
		UserAgent:            p.UserAgent,
		Timeout:              p.Timeout,
		MaxRequestsPerMinute: p.MaxRequestsPerMinute,
		MaxRetries:           p.MaxRetries,
		BackoffBase:          p.BackoffBase,
		BackoffCap:           p.BackoffCap,
	}
}
