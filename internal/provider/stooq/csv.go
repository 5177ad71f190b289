package stooq

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stock-platform/data-collector/internal/fetch"
	"github.com/stock-platform/data-collector/internal/model"
)

// ErrNoData marks a response that carries stooq's "no data" page instead of
// a CSV table. Callers must not confuse this with an empty history: an
// unknown symbol needs investigation, a quiet range does not.
var ErrNoData = fetch.ErrNoData

const quotaMessage = "Exceeded the daily hits limit"

// headerMarker is the start of a valid stooq CSV payload.
const headerMarker = "Date,Open,High,Low,Close"

var dateLayouts = []string{"2006-01-02", "20060102", "2006/01/02"}

// ParseCSV normalizes a stooq CSV body into ascending-date bars. Missing or
// non-numeric cells map to nil, never zero. A body containing only the
// header yields an empty slice.
func ParseCSV(body []byte) ([]model.Bar, error) {
	text := strings.TrimSpace(string(body))
	if strings.Contains(text, quotaMessage) {
		return nil, &fetch.QuotaExhaustedError{Provider: Name, Message: quotaMessage}
	}
	if text == "" {
		return nil, nil
	}
	if !strings.Contains(text, headerMarker) {
		snippet := text
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		return nil, fmt.Errorf("%w (got: %s)", ErrNoData, snippet)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // stooq sometimes appends columns

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("stooq: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		return nil, fmt.Errorf("%w (no date column)", ErrNoData)
	}

	var bars []model.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stooq: read row: %w", err)
		}
		if dateIdx >= len(rec) {
			continue
		}
		day, ok := parseDate(rec[dateIdx])
		if !ok {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   day,
			Open:   floatCell(rec, col, "open"),
			High:   floatCell(rec, col, "high"),
			Low:    floatCell(rec, col, "low"),
			Close:  floatCell(rec, col, "close"),
			Volume: intCell(rec, col, "volume"),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cell(rec []string, col map[string]int, name string) (string, bool) {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return "", false
	}
	s := strings.TrimSpace(rec[i])
	switch strings.ToLower(s) {
	case "", "n/a", "nan", "null", "-":
		return "", false
	}
	return s, true
}

func floatCell(rec []string, col map[string]int, name string) *float64 {
	s, ok := cell(rec, col, name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intCell(rec []string, col map[string]int, name string) *int64 {
	s, ok := cell(rec, col, name)
	if !ok {
		return nil
	}
	// Volumes occasionally arrive in scientific or fractional notation.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int64(v)
	return &n
}
