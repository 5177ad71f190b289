// Package model defines the canonical domain types shared across the
// collector: securities, provider identifier mappings, price bars,
// corporate actions, and fundamental snapshots.
//
// Types mirror the durable store's natural keys:
//   - Security: (type, canonical symbol)
//   - Bar: (security, interval, date)
//   - CorporateAction: (security, ex-date, type, source)
//   - FundamentalSnapshot: (security, as-of date, source)
package model
