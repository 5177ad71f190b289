// Package eodhd fetches corporate actions and fundamentals from the EODHD
// JSON API.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stock-platform/data-collector/internal/dates"
	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

// Name is the provider identifier.
const Name = "eodhd"

// DefaultBaseURL is the public EODHD API root.
const DefaultBaseURL = "https://eodhd.com/api"

// Config holds EODHD client settings.
type Config struct {
	BaseURL              string
	APIToken             string
	UserAgent            string
	Timeout              time.Duration
	MaxRequestsPerMinute int
	MaxRetries           int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
}

// Client calls the EODHD dividends, splits, and fundamentals endpoints.
type Client struct {
	http    *fetch.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

// New creates an EODHD client owning the provider's rate gate.
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
		token:   cfg.APIToken,
		logger:  logger,
	}
}

// Source implements the action/fundamental source naming contract.
func (c *Client) Source() string { return Name }

func (c *Client) endpoint(path, symbol string, from, to time.Time) string {
	q := url.Values{}
	q.Set("api_token", c.token)
	q.Set("fmt", "json")
	if !from.IsZero() {
		q.Set("from", dates.FormatYMD(from))
	}
	if !to.IsZero() {
		q.Set("to", dates.FormatYMD(to))
	}
	return c.baseURL + "/" + path + "/" + url.PathEscape(symbol) + "?" + q.Encode()
}

// decodeList decodes an EODHD list payload, surfacing the API's
// {code, message} error object as a typed error. Quota messages become
// QuotaExhaustedError so the batch can stop instead of retrying.
func decodeList(body []byte, symbol string) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("eodhd: decode payload for %s: %w", symbol, err)
	}
	switch v := raw.(type) {
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items, nil
	case map[string]any:
		msg, _ := v["message"].(string)
		if v["code"] != nil && msg != "" {
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "limit") && (strings.Contains(lower, "exceed") || strings.Contains(lower, "daily")) {
				return nil, &fetch.QuotaExhaustedError{Provider: Name, Message: msg}
			}
			return nil, fmt.Errorf("eodhd: api error for %s: %s", symbol, msg)
		}
	}
	return nil, fmt.Errorf("eodhd: unexpected payload shape for %s", symbol)
}

// Actions fetches dividends and splits for an EODHD-native symbol over
// [from, to] (zero times mean unbounded), sorted by ex-date ascending.
func (c *Client) Actions(ctx context.Context, symbol string, from, to time.Time) ([]model.CorporateAction, error) {
	dividends, err := c.dividends(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	splits, err := c.splits(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	actions := append(dividends, splits...)
	sort.Slice(actions, func(i, j int) bool { return actions[i].ExDate.Before(actions[j].ExDate) })
	return actions, nil
}

func (c *Client) dividends(ctx context.Context, symbol string, from, to time.Time) ([]model.CorporateAction, error) {
	body, err := c.http.Get(ctx, c.endpoint("div", symbol, from, to), nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(body, symbol)
	if err != nil {
		return nil, err
	}

	var out []model.CorporateAction
	for _, item := range items {
		exDate, ok := itemDate(item)
		if !ok {
			continue
		}
		out = append(out, model.CorporateAction{
			ExDate:     exDate,
			Type:       model.ActionDividend,
			CashAmount: itemFloat(item, "value", "dividend", "amount"),
			Currency:   itemString(item, "currency"),
			Source:     Name,
		})
	}
	return out, nil
}

func (c *Client) splits(ctx context.Context, symbol string, from, to time.Time) ([]model.CorporateAction, error) {
	body, err := c.http.Get(ctx, c.endpoint("splits", symbol, from, to), nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(body, symbol)
	if err != nil {
		return nil, err
	}

	var out []model.CorporateAction
	for _, item := range items {
		exDate, ok := itemDate(item)
		if !ok {
			continue
		}
		num, den := parseRatioValue(firstValue(item, "split", "ratio", "value"))
		out = append(out, model.CorporateAction{
			ExDate:           exDate,
			Type:             model.ActionSplit,
			SplitNumerator:   num,
			SplitDenominator: den,
			Source:           Name,
		})
	}
	return out, nil
}

// Fundamentals fetches the current shares outstanding, market cap, and
// currency for an EODHD-native symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (model.FundamentalSnapshot, error) {
	q := url.Values{}
	q.Set("api_token", c.token)
	q.Set("fmt", "json")
	u := c.baseURL + "/fundamentals/" + url.PathEscape(symbol) + "?" + q.Encode()

	body, err := c.http.Get(ctx, u, nil)
	if err != nil {
		return model.FundamentalSnapshot{}, err
	}

	var payload struct {
		General struct {
			CurrencyCode string `json:"CurrencyCode"`
		} `json:"General"`
		Highlights map[string]any `json:"Highlights"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.FundamentalSnapshot{}, fmt.Errorf("eodhd: decode fundamentals for %s: %w", symbol, err)
	}

	snap := model.FundamentalSnapshot{
		Currency: payload.General.CurrencyCode,
		Source:   Name,
	}
	if mc := itemFloat(payload.Highlights, "MarketCapitalization"); mc != nil {
		snap.MarketCap = mc
	} else if mln := itemFloat(payload.Highlights, "MarketCapitalizationMln"); mln != nil {
		snap.MarketCap = model.Float64(*mln * 1_000_000)
	}
	if so := itemFloat(payload.Highlights, "SharesOutstanding"); so != nil {
		snap.SharesOutstanding = model.Int64(int64(*so))
	}
	return snap, nil
}

// Symbol translates a canonical symbol to EODHD's native form. Hang Seng
// constituents become zero-padded ".HK" codes; everything else gets the
// ".US" suffix with share-class dots converted to dashes.
func Symbol(canonical, indexSymbol string) string {
	s := strings.ToUpper(strings.TrimSpace(canonical))
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

	if strings.Count(s, ".") == 1 && len(s) <= 6 {
		s = strings.ReplaceAll(s, ".", "-")
	}
	return s + ".US"
}

// -----------------------------------------------------------------------------
// Payload field coercion. EODHD is loose about key names and value types.
// -----------------------------------------------------------------------------

func firstValue(item map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := item[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func itemDate(item map[string]any) (time.Time, bool) {
	v := firstValue(item, "date", "exDate", "ex_date")
	s, ok := v.(string)
	if !ok || len(s) < 10 {
		return time.Time{}, false
	}
	t, err := dates.ParseYMD(s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func itemFloat(item map[string]any, keys ...string) *float64 {
	switch v := firstValue(item, keys...).(type) {
	case float64:
		return &v
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}

func itemString(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return s
}
