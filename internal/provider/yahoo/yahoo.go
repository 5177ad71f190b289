// Package yahoo fetches corporate actions and fundamentals from the Yahoo
// Finance chart and quoteSummary APIs. Yahoo requires a session cookie for
// API calls, so the client warms up against the public site when it gets a
// 401.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

// Name is the provider identifier.
const Name = "yahoo"

const (
	// DefaultBaseURL is the Yahoo Finance query API root.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// DefaultWarmupURL is fetched to establish session cookies.
	DefaultWarmupURL = "https://finance.yahoo.com"
)

// Config holds Yahoo client settings.
type Config struct {
	BaseURL              string
	WarmupURL            string
	UserAgent            string
	Timeout              time.Duration
	MaxRequestsPerMinute int
	MaxRetries           int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
}

// Client calls the Yahoo chart and quoteSummary endpoints.
type Client struct {
	http      *fetch.Client
	raw       *http.Client
	baseURL   string
	warmupURL string
	userAgent string
	logger    *slog.Logger
}

// New creates a Yahoo client with a cookie jar shared between API calls and
// the warm-up request.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	warmupURL := cfg.WarmupURL
	if warmupURL == "" {
		warmupURL = DefaultWarmupURL
	}

	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	raw := &http.Client{Jar: jar, Timeout: timeout}

	c := &Client{
		raw:       raw,
		baseURL:   baseURL,
		warmupURL: warmupURL,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}

	gate := fetch.NewGate(cfg.MaxRequestsPerMinute)
	opts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHTTPClient(raw),
		fetch.WithAuthenticate(c.warmup),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, fetch.WithRetries(cfg.MaxRetries))
	}
	if cfg.BackoffBase > 0 && cfg.BackoffCap > 0 {
		opts = append(opts, fetch.WithBackoff(cfg.BackoffBase, cfg.BackoffCap))
	}
	c.http = fetch.NewClient(Name, gate, opts...)
	return c
}

// Source implements the action/fundamental source naming contract.
func (c *Client) Source() string { return Name }

// warmup visits the public site so Yahoo sets the cookies its query API
// expects. Registered as the 401 re-authentication hook.
func (c *Client) warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.warmupURL, nil)
	if err != nil {
		return fmt.Errorf("yahoo: warmup request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.raw.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo: warmup: %w", err)
	}
	resp.Body.Close()
	c.logger.Debug("yahoo session warmed up", "status", resp.StatusCode)
	return nil
}

type chartPayload struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
					Date        int64   `json:"date"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Actions fetches dividends and splits for a Yahoo-native symbol over
// [from, to]. A zero from means full history. Event timestamps are
// truncated to UTC dates.
func (c *Client) Actions(ctx context.Context, symbol string, from, to time.Time) ([]model.CorporateAction, error) {
	period1 := int64(0)
	if !from.IsZero() {
		period1 = from.Unix()
	}
	period2 := to.Unix()
	if to.IsZero() {
		period2 = time.Now().Unix()
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(period1, 10))
	q.Set("period2", strconv.FormatInt(period2, 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	u := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	body, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	var payload chartPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("yahoo: decode chart for %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: chart error for %s: %s (%s)",
			symbol, payload.Chart.Error.Description, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	result := payload.Chart.Result[0]
	currency := result.Meta.Currency

	var actions []model.CorporateAction
	for _, d := range result.Events.Dividends {
		amount := d.Amount
		actions = append(actions, model.CorporateAction{
			ExDate:     eventDate(d.Date),
			Type:       model.ActionDividend,
			CashAmount: &amount,
			Currency:   currency,
			Source:     Name,
		})
	}
	for _, s := range result.Events.Splits {
		var num, den *int64
		if s.Numerator > 0 && s.Denominator > 0 {
			num = model.Int64(int64(s.Numerator))
			den = model.Int64(int64(s.Denominator))
		}
		actions = append(actions, model.CorporateAction{
			ExDate:           eventDate(s.Date),
			Type:             model.ActionSplit,
			SplitNumerator:   num,
			SplitDenominator: den,
			Source:           Name,
		})
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].ExDate.Before(actions[j].ExDate) })
	return actions, nil
}

func eventDate(unix int64) time.Time {
	t := time.Unix(unix, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryPayload struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				SharesOutstanding rawValue `json:"sharesOutstanding"`
				FloatShares       rawValue `json:"floatShares"`
			} `json:"defaultKeyStatistics"`
			Price struct {
				MarketCap rawValue `json:"marketCap"`
				Currency  string   `json:"currency"`
			} `json:"price"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fundamentals fetches shares outstanding, float, and market cap for a
// Yahoo-native symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (model.FundamentalSnapshot, error) {
	q := url.Values{}
	q.Set("modules", "defaultKeyStatistics,price")
	u := c.baseURL + "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?" + q.Encode()

	body, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return model.FundamentalSnapshot{}, err
	}

	var payload quoteSummaryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.FundamentalSnapshot{}, fmt.Errorf("yahoo: decode quoteSummary for %s: %w", symbol, err)
	}
	if payload.QuoteSummary.Error != nil {
		return model.FundamentalSnapshot{}, fmt.Errorf("yahoo: quoteSummary error for %s: %s (%s)",
			symbol, payload.QuoteSummary.Error.Description, payload.QuoteSummary.Error.Code)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return model.FundamentalSnapshot{}, fmt.Errorf("yahoo: empty quoteSummary for %s", symbol)
	}

	result := payload.QuoteSummary.Result[0]
	snap := model.FundamentalSnapshot{
		Currency: result.Price.Currency,
		Source:   Name,
	}
	if v := result.DefaultKeyStatistics.SharesOutstanding.Raw; v != nil {
		snap.SharesOutstanding = model.Int64(int64(*v))
	}
	if v := result.DefaultKeyStatistics.FloatShares.Raw; v != nil {
		snap.FloatShares = model.Int64(int64(*v))
	}
	if v := result.Price.MarketCap.Raw; v != nil {
		snap.MarketCap = v
	}
	return snap, nil
}

// indexSymbols maps canonical index symbols to Yahoo's tickers.
var indexSymbols = map[string]string{
	"^SPX": "^GSPC",
	"^NDQ": "^IXIC",
	"^DJI": "^DJI",
}

// Symbol translates a canonical symbol to Yahoo's native form. Indices use
// Yahoo's caret tickers, Hang Seng constituents become zero-padded ".HK"
// codes, and share-class dots become dashes.
func Symbol(canonical, indexSymbol string) string {
	s := strings.ToUpper(strings.TrimSpace(canonical))

	if strings.HasPrefix(s, "^") {
		if mapped, ok := indexSymbols[s]; ok {
			return mapped
		}
		return s
	}

	idx := strings.ToUpper(indexSymbol)
	if idx == "^HSI" || idx == "^HSTECH" || strings.HasPrefix(idx, "^HK") {
		trimmed := strings.TrimSuffix(s, ".HK")
		if n, err := strconv.Atoi(trimmed); err == nil {
			return fmt.Sprintf("%04d.HK", n)
		}
		if strings.HasSuffix(s, ".HK") {
			return s
		}
		return s + ".HK"
	}

	return strings.ReplaceAll(s, ".", "-")
}
