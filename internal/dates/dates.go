// Package dates provides calendar-date helpers for the collector. All
// values are time.Time at UTC midnight; providers and the store never see
// sub-day precision.
package dates

import "time"

const ymdLayout = "2006-01-02"

// ParseYMD parses a YYYY-MM-DD string into a UTC-midnight time.
func ParseYMD(s string) (time.Time, error) {
	return time.ParseInLocation(ymdLayout, s, time.UTC)
}

// FormatYMD renders t as YYYY-MM-DD.
func FormatYMD(t time.Time) string {
	return t.Format(ymdLayout)
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC date.
func Today() time.Time {
	return Day(time.Now())
}

// Yesterday returns the UTC date before today.
func Yesterday() time.Time {
	return AddDays(Today(), -1)
}

// AddDays shifts a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from a to b (negative when
// b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}
