package universe

import (
	"context"
	"testing"

	"github.com/stock-platform/data-collector/internal/model"
)

type fakeLister struct {
	members     []model.Security
	identifiers map[int64]map[string]string
}

func (f *fakeLister) ListIndexConstituents(_ context.Context, _ int64) ([]model.Security, error) {
	return f.members, nil
}

func (f *fakeLister) Identifiers(_ context.Context, _ []int64) (map[int64]map[string]string, error) {
	return f.identifiers, nil
}

func TestBuiltinRoots(t *testing.T) {
	roots := Builtin()
	if len(roots) != 5 {
		t.Fatalf("got %d built-in roots, want 5", len(roots))
	}
	for _, idx := range roots {
		if idx.Identifiers["stooq"] == "" {
			t.Errorf("%s has no stooq identifier", idx.Security.CanonicalSymbol)
		}
	}

	spx, ok := FindBuiltin("^SPX")
	if !ok {
		t.Fatal("FindBuiltin(^SPX) not found")
	}
	if spx.Identifiers["yahoo"] != "^GSPC" {
		t.Errorf("^SPX yahoo identifier = %q, want ^GSPC", spx.Identifiers["yahoo"])
	}
	if _, ok := FindBuiltin("^NOPE"); ok {
		t.Error("FindBuiltin(^NOPE) should not be found")
	}
}

func TestTargetsDerivesSymbols(t *testing.T) {
	l := &fakeLister{
		members: []model.Security{
			{ID: 10, Type: model.SecurityTypeStock, CanonicalSymbol: "AAPL"},
			{ID: 11, Type: model.SecurityTypeStock, CanonicalSymbol: "BRK.B"},
		},
	}
	idx, _ := FindBuiltin("^SPX")

	targets, err := Targets(context.Background(), l, idx, 1)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}

	aapl := targets[0]
	if aapl.Symbols["stooq"] != "aapl.us" {
		t.Errorf("AAPL stooq symbol = %q, want aapl.us", aapl.Symbols["stooq"])
	}
	if aapl.Symbols["eodhd"] != "AAPL.US" {
		t.Errorf("AAPL eodhd symbol = %q, want AAPL.US", aapl.Symbols["eodhd"])
	}
	if aapl.Symbols["yahoo"] != "AAPL" {
		t.Errorf("AAPL yahoo symbol = %q, want AAPL", aapl.Symbols["yahoo"])
	}
	if aapl.IndexSymbol != "^SPX" {
		t.Errorf("IndexSymbol = %q, want ^SPX", aapl.IndexSymbol)
	}

	brk := targets[1]
	if brk.Symbols["yahoo"] != "BRK-B" {
		t.Errorf("BRK.B yahoo symbol = %q, want BRK-B", brk.Symbols["yahoo"])
	}
}

func TestTargetsStoredIdentifiersWin(t *testing.T) {
	l := &fakeLister{
		members: []model.Security{
			{ID: 10, Type: model.SecurityTypeStock, CanonicalSymbol: "AAPL"},
		},
		identifiers: map[int64]map[string]string{
			10: {"stooq": "custom.us"},
		},
	}
	idx, _ := FindBuiltin("^SPX")

	targets, err := Targets(context.Background(), l, idx, 1)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if targets[0].Symbols["stooq"] != "custom.us" {
		t.Errorf("stooq symbol = %q, want stored identifier to win", targets[0].Symbols["stooq"])
	}
	if targets[0].Symbols["yahoo"] != "AAPL" {
		t.Errorf("yahoo symbol = %q, derived fallback should remain", targets[0].Symbols["yahoo"])
	}
}

func TestTargetsEmptyIndex(t *testing.T) {
	idx, _ := FindBuiltin("^DJI")
	targets, err := Targets(context.Background(), &fakeLister{}, idx, 1)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("got %d targets, want none", len(targets))
	}
}
