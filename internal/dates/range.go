package dates

import (
	"errors"
	"iter"
	"time"
)

// ErrInvalidRange is returned when a chunk span is not positive.
var ErrInvalidRange = errors.New("dates: max span days must be positive")

// Range is an inclusive [Start, End] date interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the inclusive length of the range in days.
func (r Range) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Chunks splits [start, end] into contiguous, non-overlapping sub-ranges of
// at most maxSpanDays each. The sequence is lazy and yields nothing when
// start is after end. Providers cap how much history a single request may
// cover; chunking keeps each fetch under that cap.
func Chunks(start, end time.Time, maxSpanDays int) (iter.Seq[Range], error) {
	if maxSpanDays <= 0 {
		return nil, ErrInvalidRange
	}
	start, end = Day(start), Day(end)
	seq := func(yield func(Range) bool) {
		for cur := start; !cur.After(end); {
			chunkEnd := AddDays(cur, maxSpanDays-1)
			if chunkEnd.After(end) {
				chunkEnd = end
			}
			if !yield(Range{Start: cur, End: chunkEnd}) {
				return
			}
			cur = AddDays(chunkEnd, 1)
		}
	}
	return seq, nil
}
