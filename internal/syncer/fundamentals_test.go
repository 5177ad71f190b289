package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

type fakeFundamentalSource struct {
	mu      sync.Mutex
	name    string
	symbols []string
	snap    model.FundamentalSnapshot
	err     error
}

var _ FundamentalSource = (*fakeFundamentalSource)(nil)

func (f *fakeFundamentalSource) Source() string { return f.name }

func (f *fakeFundamentalSource) Fundamentals(_ context.Context, symbol string) (model.FundamentalSnapshot, error) {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	f.mu.Unlock()
	if f.err != nil {
		return model.FundamentalSnapshot{}, f.err
	}
	snap := f.snap
	snap.Source = f.name
	return snap, nil
}

func (f *fakeFundamentalSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.symbols)
}

func TestSyncFundamentalsUSPrefersYahoo(t *testing.T) {
	sink := newFakeSink()
	yahoo := &fakeFundamentalSource{name: "yahoo", snap: model.FundamentalSnapshot{Currency: "USD"}}
	eodhd := &fakeFundamentalSource{name: "eodhd"}
	s := New(testConfig(t), sink, nil)

	res, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{eodhd, yahoo},
		[]Target{{SecurityID: 1, Symbol: "AAPL", IndexSymbol: "^SPX"}})
	if err != nil {
		t.Fatalf("SyncFundamentals: %v", err)
	}
	if yahoo.calls() != 1 || eodhd.calls() != 0 {
		t.Fatalf("calls yahoo=%d eodhd=%d, want yahoo primary for US", yahoo.calls(), eodhd.calls())
	}
	if res.SnapshotsUpserted != 1 || len(sink.snaps) != 1 {
		t.Fatalf("SnapshotsUpserted = %d, sink has %d", res.SnapshotsUpserted, len(sink.snaps))
	}
	snap := sink.snaps[0]
	if snap.SecurityID != 1 || snap.AsOfDate.IsZero() {
		t.Errorf("snapshot not stamped: %+v", snap)
	}
	if snap.Source != "yahoo" {
		t.Errorf("source = %q, want yahoo", snap.Source)
	}
}

func TestSyncFundamentalsHongKongPrefersEODHD(t *testing.T) {
	sink := newFakeSink()
	yahoo := &fakeFundamentalSource{name: "yahoo"}
	eodhd := &fakeFundamentalSource{name: "eodhd", snap: model.FundamentalSnapshot{Currency: "HKD"}}
	s := New(testConfig(t), sink, nil)

	_, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{yahoo, eodhd},
		[]Target{{SecurityID: 2, Symbol: "0700.HK", IndexSymbol: "^HSI"}})
	if err != nil {
		t.Fatalf("SyncFundamentals: %v", err)
	}
	if eodhd.calls() != 1 || yahoo.calls() != 0 {
		t.Fatalf("calls eodhd=%d yahoo=%d, want eodhd primary for HK", eodhd.calls(), yahoo.calls())
	}
}

func TestSyncFundamentalsFallsBackWhenPrimaryFails(t *testing.T) {
	sink := newFakeSink()
	yahoo := &fakeFundamentalSource{name: "yahoo", err: errors.New("boom")}
	eodhd := &fakeFundamentalSource{name: "eodhd", snap: model.FundamentalSnapshot{Currency: "USD"}}
	s := New(testConfig(t), sink, nil)

	res, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{yahoo, eodhd},
		[]Target{{SecurityID: 1, Symbol: "AAPL"}})
	if err != nil {
		t.Fatalf("SyncFundamentals: %v", err)
	}
	if eodhd.calls() != 1 {
		t.Fatal("fallback source was not tried")
	}
	if res.SnapshotsUpserted != 1 {
		t.Fatalf("SnapshotsUpserted = %d, want 1", res.SnapshotsUpserted)
	}
	if sink.snaps[0].Source != "eodhd" {
		t.Errorf("source = %q, want fallback's stamp", sink.snaps[0].Source)
	}
}

func TestSyncFundamentalsSkipsWhenSnapshotExists(t *testing.T) {
	sink := newFakeSink()
	sink.hasSnap[1] = true
	yahoo := &fakeFundamentalSource{name: "yahoo"}
	s := New(testConfig(t), sink, nil)

	res, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{yahoo},
		[]Target{{SecurityID: 1, Symbol: "AAPL"}})
	if err != nil {
		t.Fatalf("SyncFundamentals: %v", err)
	}
	if yahoo.calls() != 0 {
		t.Error("expected no fetches for already-snapshotted security")
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}

func TestSyncFundamentalsAllSourcesFailIsSoftFailure(t *testing.T) {
	sink := newFakeSink()
	yahoo := &fakeFundamentalSource{name: "yahoo", err: errors.New("down")}
	eodhd := &fakeFundamentalSource{name: "eodhd", err: errors.New("also down")}
	s := New(testConfig(t), sink, nil)

	res, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{yahoo, eodhd},
		[]Target{{SecurityID: 1, Symbol: "AAPL"}})
	if err != nil {
		t.Fatalf("SyncFundamentals: %v", err)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %+v, want one", res.Failures)
	}
}

func TestSyncFundamentalsQuotaAborts(t *testing.T) {
	sink := newFakeSink()
	eodhd := &fakeFundamentalSource{name: "eodhd", err: &fetch.QuotaExhaustedError{Provider: "eodhd", Message: "limit"}}
	s := New(testConfig(t), sink, nil)

	_, err := s.SyncFundamentals(context.Background(),
		[]FundamentalSource{eodhd},
		[]Target{{SecurityID: 2, Symbol: "0700.HK", IndexSymbol: "^HSI"}})
	if !fetch.IsQuotaExhausted(err) {
		t.Fatalf("err = %v, want quota exhaustion to propagate", err)
	}
}
