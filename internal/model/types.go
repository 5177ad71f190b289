package model

import "time"

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// SecurityType classifies an instrument.
type SecurityType string

const (
	SecurityTypeStock SecurityType = "STOCK"
	SecurityTypeIndex SecurityType = "INDEX"
	SecurityTypeETF   SecurityType = "ETF"
)

// Interval is a bar aggregation period.
type Interval string

const (
	Interval1d Interval = "1d"
	Interval1w Interval = "1w"
	Interval1m Interval = "1m"
	Interval1q Interval = "1q"
	Interval1y Interval = "1y"
)

// Valid reports whether i is a known interval.
func (i Interval) Valid() bool {
	switch i {
	case Interval1d, Interval1w, Interval1m, Interval1q, Interval1y:
		return true
	}
	return false
}

// Security represents a tradable or index instrument. Identified by
// (type, canonical symbol); the canonical symbol is exchange-agnostic.
type Security struct {
	ID              int64        // Database identifier (0 before first upsert)
	Type            SecurityType // STOCK, INDEX, ETF
	CanonicalSymbol string       // e.g. "AAPL", "^SPX"
	Name            string       // Display name
	Exchange        string       // Optional exchange code
	Currency        string       // Optional ISO currency
}

// SecurityIdentifier maps a security to a provider-specific symbol.
// Multiple providers may map to one security.
type SecurityIdentifier struct {
	SecurityID int64
	Provider   string // e.g. "stooq", "eodhd", "yahoo"
	Identifier string // Provider-native symbol, e.g. "aapl.us"
	Primary    bool
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Bar is one OHLCV observation for a (security, interval, date) triple.
// Numeric fields are pointers: upstream feeds omit values, and a missing
// value must never collapse to zero.
type Bar struct {
	SecurityID int64
	Interval   Interval
	Date       time.Time // UTC midnight
	Open       *float64
	High       *float64
	Low        *float64
	Close      *float64
	Volume     *int64
	Currency   string
	Source     string // Provider that produced the bar
}

// ActionType is the kind of corporate action.
type ActionType string

const (
	ActionDividend ActionType = "DIVIDEND"
	ActionSplit    ActionType = "SPLIT"
)

// CorporateAction is a dividend or split event, keyed by
// (security, ex-date, type, source). Each provider's action history is
// tracked independently; there is no cross-source dedup.
type CorporateAction struct {
	SecurityID       int64
	ExDate           time.Time // UTC midnight
	Type             ActionType
	CashAmount       *float64 // Dividends only
	Currency         string
	SplitNumerator   *int64 // Splits only; nil when the ratio was unparseable
	SplitDenominator *int64
	Source           string
}

// FundamentalSnapshot is a once-per-day capture of share statistics,
// keyed by (security, as-of date, source).
type FundamentalSnapshot struct {
	SecurityID        int64
	AsOfDate          time.Time // UTC midnight
	SharesOutstanding *int64
	FloatShares       *int64
	MarketCap         *float64
	Currency          string
	Source            string
}

// -----------------------------------------------------------------------------
// Pointer helpers
// -----------------------------------------------------------------------------

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
