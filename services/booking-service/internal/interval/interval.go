// Package interval holds the half-open overlap predicate and the slot slicing built on it.
package interval

import (
	"cmp"
	"time"
)

// Overlaps reports whether [s1, e1) and [s2, e2) intersect. Ranges that only touch do not.
func Overlaps[T cmp.Ordered](s1, e1, s2, e2 T) bool {
	return s1 < e2 && s2 < e1
}

// Range is a half-open time range [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Valid() bool { return r.Start.Before(r.End) }

func (r Range) Duration() time.Duration { return r.End.Sub(r.Start) }

func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.Start.UnixNano(), r.End.UnixNano(), o.Start.UnixNano(), o.End.UnixNano())
}

// FirstOverlap returns the index of the first range in others overlapping r, or -1.
func FirstOverlap(r Range, others []Range) int {
	for i, o := range others {
		if r.Overlaps(o) {
			return i
		}
	}
	return -1
}

// FirstOverlappingPair returns the first pair i < j of overlapping ranges, or (-1, -1).
func FirstOverlappingPair(ranges []Range) (int, int) {
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Overlaps(ranges[j]) {
				return i, j
			}
		}
	}
	return -1, -1
}

// Slices cuts window into consecutive ranges of length duration, advancing by step, dropping
// any range that does not start after now or that overlaps busy.
func Slices(window Range, duration, step time.Duration, busy []Range, now time.Time) []Range {
	if duration <= 0 || step <= 0 || !window.Valid() {
		return nil
	}
	var out []Range
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(step) {
		if !t.After(now) {
			continue
		}
		r := Range{Start: t, End: t.Add(duration)}
		if FirstOverlap(r, busy) >= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}
