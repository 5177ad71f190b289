package syncer

import (
	"testing"

	"github.com/stock-platform/data-collector/internal/model"
)

func TestDriftingDate(t *testing.T) {
	day := func(s string, close float64) model.Bar {
		return model.Bar{Date: ymd(t, s), Close: model.Float64(close)}
	}

	tests := []struct {
		name     string
		fetched  []model.Bar
		stored   map[string]float64
		wantDate string
	}{
		{
			name:    "identical closes",
			fetched: []model.Bar{day("2024-06-05", 100)},
			stored:  map[string]float64{"2024-06-05": 100},
		},
		{
			name:    "under threshold",
			fetched: []model.Bar{day("2024-06-05", 100.4)},
			stored:  map[string]float64{"2024-06-05": 100},
		},
		{
			name:    "exactly at threshold is not drift",
			fetched: []model.Bar{day("2024-06-05", 100.5)},
			stored:  map[string]float64{"2024-06-05": 100},
		},
		{
			name:     "over threshold",
			fetched:  []model.Bar{day("2024-06-05", 100.6)},
			stored:   map[string]float64{"2024-06-05": 100},
			wantDate: "2024-06-05",
		},
		{
			name:     "downward revision drifts too",
			fetched:  []model.Bar{day("2024-06-05", 99.4)},
			stored:   map[string]float64{"2024-06-05": 100},
			wantDate: "2024-06-05",
		},
		{
			name:    "zero baseline ignored",
			fetched: []model.Bar{day("2024-06-05", 50)},
			stored:  map[string]float64{"2024-06-05": 0},
		},
		{
			name:    "date missing from store ignored",
			fetched: []model.Bar{day("2024-06-06", 200)},
			stored:  map[string]float64{"2024-06-05": 100},
		},
		{
			name:    "nil close ignored",
			fetched: []model.Bar{{Date: ymd(t, "2024-06-05")}},
			stored:  map[string]float64{"2024-06-05": 100},
		},
		{
			name: "first drifting date reported",
			fetched: []model.Bar{
				day("2024-06-04", 100),
				day("2024-06-05", 120),
				day("2024-06-06", 130),
			},
			stored: map[string]float64{
				"2024-06-04": 100,
				"2024-06-05": 100,
				"2024-06-06": 100,
			},
			wantDate: "2024-06-05",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			date, dev := driftingDate(tc.fetched, tc.stored, 0.005)
			if date != tc.wantDate {
				t.Fatalf("driftingDate = %q (dev %.4f), want %q", date, dev, tc.wantDate)
			}
			if tc.wantDate != "" && dev <= 0.005 {
				t.Errorf("deviation %.4f should exceed threshold", dev)
			}
		})
	}
}
