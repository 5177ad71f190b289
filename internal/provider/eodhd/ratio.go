package eodhd

import (
	"math"
	"strconv"
	"strings"
)

var ratioSeparators = []string{":", "/", "-", "x", "X"}

// ParseSplitRatio parses EODHD's split notation into a numerator and
// denominator pair. Accepted forms are "2:1", "2/1", "2-1", "2x1", and a
// plain multiplier like "2". Decimal components such as "2.5:1" or "1.5"
// are rounded to the nearest integer, halves to even. Unparseable input
// yields (nil, nil) so callers can store the raw event without a ratio.
func ParseSplitRatio(s string) (*int64, *int64) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	for _, sep := range ratioSeparators {
		if !strings.Contains(s, sep) {
			continue
		}
		parts := strings.SplitN(s, sep, 2)
		num, err1 := parseRatioNumber(parts[0])
		den, err2 := parseRatioNumber(parts[1])
		if err1 != nil || err2 != nil || num == nil || den == nil {
			return nil, nil
		}
		return num, den
	}

	num, err := parseRatioNumber(s)
	if err != nil || num == nil {
		return nil, nil
	}
	one := int64(1)
	return num, &one
}

func parseRatioNumber(s string) (*int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, err
	}
	if f <= 0 {
		return nil, nil
	}
	n := int64(math.RoundToEven(f))
	// A component that rounds to zero, like 0.5, has no integer form.
	if n <= 0 {
		return nil, nil
	}
	return &n, nil
}

// parseRatioValue coerces the raw payload field to a string before parsing.
func parseRatioValue(v any) (*int64, *int64) {
	switch t := v.(type) {
	case string:
		return ParseSplitRatio(t)
	case float64:
		return ParseSplitRatio(strconv.FormatFloat(t, 'f', -1, 64))
	}
	return nil, nil
}
