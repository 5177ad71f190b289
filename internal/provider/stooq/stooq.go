// Package stooq fetches daily OHLCV history from stooq.com CSV downloads.
package stooq

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

// Name is the provider identifier used for gates, identifiers, and bar
// sources.
const Name = "stooq"

// DefaultBaseURL is the public stooq endpoint.
const DefaultBaseURL = "https://stooq.com"

// Config holds stooq client settings.
type Config struct {
	BaseURL              string
	UserAgent            string
	Timeout              time.Duration
	MaxRequestsPerMinute int
	MaxRetries           int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
}

// Client downloads price history.
type Client struct {
	http    *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// New creates a stooq client. The client owns the provider's rate gate, so
// one instance must be shared process-wide.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	gate := fetch.NewGate(cfg.MaxRequestsPerMinute)
	opts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithUserAgent(cfg.UserAgent),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, fetch.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, fetch.WithRetries(cfg.MaxRetries))
	}
	if cfg.BackoffBase > 0 && cfg.BackoffCap > 0 {
		opts = append(opts, fetch.WithBackoff(cfg.BackoffBase, cfg.BackoffCap))
	}

	return &Client{
		http:    fetch.NewClient(Name, gate, opts...),
		baseURL: baseURL,
		logger:  logger,
	}
}

// Source implements the bar source naming contract.
func (c *Client) Source() string { return Name }

// freq maps a bar interval to stooq's frequency letter.
func freq(interval model.Interval) (string, error) {
	switch interval {
	case model.Interval1d:
		return "d", nil
	case model.Interval1w:
		return "w", nil
	case model.Interval1m:
		return "m", nil
	case model.Interval1q:
		return "q", nil
	case model.Interval1y:
		return "y", nil
	}
	return "", fmt.Errorf("stooq: unsupported interval %q", interval)
}

// Bars fetches price history for a stooq-native symbol over an inclusive
// date range.
func (c *Client) Bars(ctx context.Context, symbol string, r dates.Range, interval model.Interval) ([]model.Bar, error) {
	f, err := freq(interval)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("s", symbol)
	q.Set("d1", r.Start.Format("20060102"))
	q.Set("d2", r.End.Format("20060102"))
	q.Set("i", f)
	u := c.baseURL + "/q/d/l/?" + q.Encode()

	body, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	bars, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	for i := range bars {
		bars[i].Interval = interval
		bars[i].Source = Name
	}
	c.logger.Debug("fetched bars",
		"provider", Name,
		"symbol", symbol,
		"rows", len(bars),
		"from", dates.FormatYMD(r.Start),
		"to", dates.FormatYMD(r.End),
	)
	return bars, nil
}

// Symbol translates an exchange-agnostic canonical symbol into stooq's
// native form: indices keep their caret prefix, US equities get a ".us"
// suffix, and share-class dots become dashes (BRK.B -> brk-b.us).
func Symbol(canonical string, secType model.SecurityType) string {
	s := strings.ToLower(strings.TrimSpace(canonical))
	if strings.HasPrefix(s, "^") {
		return s
	}
	if strings.Count(s, ".") == 1 && len(s) <= 6 {
		s = strings.ReplaceAll(s, ".", "-")
	}
	if secType == model.SecurityTypeStock || secType == model.SecurityTypeETF {
		return s + ".us"
	}
	return s
}
