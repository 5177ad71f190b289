// Package universe defines which securities a run synchronizes: the
// built-in index roots and the resolution of stored index constituents into
// sync targets with provider-native symbols.
package universe

import (
	"context"
	"fmt"

	"github.com/stock-platform/data-collector/internal/model"
	"github.com/stock-platform/data-collector/internal/provider/eodhd"
	"github.com/stock-platform/data-collector/internal/provider/stooq"
	"github.com/stock-platform/data-collector/internal/provider/yahoo"
	"github.com/stock-platform/data-collector/internal/syncer"
)

// Index is one tracked index or index-proxy ETF together with its
// provider-native symbols.
type Index struct {
	Security    model.Security
	Identifiers map[string]string // provider -> native symbol
}

// Builtin returns the default tracked universe roots.
func Builtin() []Index {
	return []Index{
		{
			Security: model.Security{Type: model.SecurityTypeIndex, CanonicalSymbol: "^SPX", Name: "S&P 500"},
			Identifiers: map[string]string{
				stooq.Name: "^spx",
				yahoo.Name: "^GSPC",
			},
		},
		{
			Security: model.Security{Type: model.SecurityTypeIndex, CanonicalSymbol: "^DJI", Name: "Dow Jones Industrial Average"},
			Identifiers: map[string]string{
				stooq.Name: "^dji",
				yahoo.Name: "^DJI",
			},
		},
		{
			Security: model.Security{Type: model.SecurityTypeIndex, CanonicalSymbol: "^NDQ", Name: "Nasdaq Composite"},
			Identifiers: map[string]string{
				stooq.Name: "^ndq",
				yahoo.Name: "^IXIC",
			},
		},
		{
			Security: model.Security{Type: model.SecurityTypeETF, CanonicalSymbol: "IWM", Name: "iShares Russell 2000 ETF"},
			Identifiers: map[string]string{
				stooq.Name: "iwm.us",
				yahoo.Name: "IWM",
				eodhd.Name: "IWM.US",
			},
		},
		{
			Security: model.Security{Type: model.SecurityTypeETF, CanonicalSymbol: "VIXY", Name: "ProShares VIX Short-Term Futures ETF"},
			Identifiers: map[string]string{
				stooq.Name: "vixy.us",
				yahoo.Name: "VIXY",
				eodhd.Name: "VIXY.US",
			},
		},
	}
}

// FindBuiltin returns the built-in index with the given canonical symbol.
func FindBuiltin(symbol string) (Index, bool) {
	for _, idx := range Builtin() {
		if idx.Security.CanonicalSymbol == symbol {
			return idx, true
		}
	}
	return Index{}, false
}

// Lister answers the constituent queries Targets needs. Implemented by the
// Postgres store.
type Lister interface {
	ListIndexConstituents(ctx context.Context, indexID int64) ([]model.Security, error)
	Identifiers(ctx context.Context, securityIDs []int64) (map[int64]map[string]string, error)
}

// IndexTarget converts an index root itself into a sync target.
func IndexTarget(idx Index, securityID int64) syncer.Target {
	return syncer.Target{
		SecurityID: securityID,
		Symbol:     idx.Security.CanonicalSymbol,
		Symbols:    idx.Identifiers,
	}
}

// Targets resolves the index's current constituents into sync targets.
// Stored identifiers win; providers without one get a derived symbol so a
// freshly imported membership list still syncs.
func Targets(ctx context.Context, l Lister, idx Index, indexID int64) ([]syncer.Target, error) {
	members, err := l.ListIndexConstituents(ctx, indexID)
	if err != nil {
		return nil, fmt.Errorf("list constituents of %s: %w", idx.Security.CanonicalSymbol, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	stored, err := l.Identifiers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve identifiers: %w", err)
	}

	indexSymbol := idx.Security.CanonicalSymbol
	targets := make([]syncer.Target, 0, len(members))
	for _, m := range members {
		symbols := map[string]string{
			stooq.Name: stooq.Symbol(m.CanonicalSymbol, m.Type),
			eodhd.Name: eodhd.Symbol(m.CanonicalSymbol, indexSymbol),
			yahoo.Name: yahoo.Symbol(m.CanonicalSymbol, indexSymbol),
		}
		for provider, ident := range stored[m.ID] {
			symbols[provider] = ident
		}
		targets = append(targets, syncer.Target{
			SecurityID:  m.ID,
			Symbol:      m.CanonicalSymbol,
			IndexSymbol: indexSymbol,
			Symbols:     symbols,
		})
	}
	return targets, nil
}
