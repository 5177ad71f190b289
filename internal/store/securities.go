package store

import (
	"context"
	"fmt"
	"time"

	"github.com/stock-platform/data-collector/internal/model"
)

// UpsertSecurity inserts or refreshes a security by its
// (type, canonical symbol) natural key and returns its database id.
func (s *Store) UpsertSecurity(ctx context.Context, sec model.Security) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO securities (type, canonical_symbol, name, exchange, currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (type, canonical_symbol) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), securities.name),
			exchange = COALESCE(NULLIF(EXCLUDED.exchange, ''), securities.exchange),
			currency = COALESCE(NULLIF(EXCLUDED.currency, ''), securities.currency)
		RETURNING id
	`, sec.Type, sec.CanonicalSymbol, sec.Name, sec.Exchange, sec.Currency).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert security %s: %w", sec.CanonicalSymbol, err)
	}
	return id, nil
}

// UpsertIdentifier records a provider-native symbol for a security.
func (s *Store) UpsertIdentifier(ctx context.Context, ident model.SecurityIdentifier) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO security_identifiers (security_id, provider, identifier, is_primary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (security_id, provider, identifier) DO UPDATE SET
			is_primary = EXCLUDED.is_primary
	`, ident.SecurityID, ident.Provider, ident.Identifier, ident.Primary)
	if err != nil {
		return fmt.Errorf("upsert identifier %s/%s: %w", ident.Provider, ident.Identifier, err)
	}
	return nil
}

// Identifiers returns provider -> native symbol for each of the given
// securities. Only primary identifiers are returned when a provider has
// several.
func (s *Store) Identifiers(ctx context.Context, securityIDs []int64) (map[int64]map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT security_id, provider, identifier
		FROM security_identifiers
		WHERE security_id = ANY($1)
		ORDER BY security_id, provider, is_primary
	`, securityIDs)
	if err != nil {
		return nil, fmt.Errorf("query identifiers: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[string]string)
	for rows.Next() {
		var id int64
		var provider, identifier string
		if err := rows.Scan(&id, &provider, &identifier); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string]string)
		}
		// is_primary sorts last, so a primary identifier overwrites any
		// secondary one for the same provider.
		out[id][provider] = identifier
	}
	return out, rows.Err()
}

// UpsertIndexMembership records that member belonged to index as of a date.
// Membership history is kept; the newest as-of date is the current set.
func (s *Store) UpsertIndexMembership(ctx context.Context, indexID, memberID int64, asOf time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO index_memberships (index_security_id, member_security_id, as_of_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (index_security_id, member_security_id, as_of_date) DO NOTHING
	`, indexID, memberID, asOf)
	if err != nil {
		return fmt.Errorf("upsert index membership %d/%d: %w", indexID, memberID, err)
	}
	return nil
}

// ListIndexConstituents returns the securities in the index's most recent
// membership snapshot.
func (s *Store) ListIndexConstituents(ctx context.Context, indexID int64) ([]model.Security, error) {
	rows, err := s.db.Query(ctx, `
		WITH latest AS (
			SELECT MAX(as_of_date) AS as_of
			FROM index_memberships
			WHERE index_security_id = $1
		)
		SELECT s.id, s.type, s.canonical_symbol, s.name, s.exchange, s.currency
		FROM index_memberships m
		JOIN latest ON m.as_of_date = latest.as_of
		JOIN securities s ON s.id = m.member_security_id
		WHERE m.index_security_id = $1
		ORDER BY s.canonical_symbol
	`, indexID)
	if err != nil {
		return nil, fmt.Errorf("query index constituents: %w", err)
	}
	defer rows.Close()

	var out []model.Security
	for rows.Next() {
		var sec model.Security
		if err := rows.Scan(&sec.ID, &sec.Type, &sec.CanonicalSymbol, &sec.Name, &sec.Exchange, &sec.Currency); err != nil {
			return nil, fmt.Errorf("scan constituent: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}
