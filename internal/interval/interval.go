// Package interval models busy time ranges and the few set operations the
// free-slot finder needs: clamping to a window, padding, and union of a
// sorted run.
package interval

import (
	"sort"
	"time"
)

// Interval is a time range with Start before End. All intervals taking part in
// one computation are expected to share a location.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, end).
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Empty reports whether the interval has no positive length.
func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// Clamp intersects iv with window. The boolean is false when the
// intersection is empty or inverted; such intervals are dropped, not errors.
func (iv Interval) Clamp(window Interval) (Interval, bool) {
	out := iv
	if window.Start.After(out.Start) {
		out.Start = window.Start
	}
	if window.End.Before(out.End) {
		out.End = window.End
	}
	if out.Empty() {
		return Interval{}, false
	}
	return out, true
}

// Inflate pads the interval by buffer on both sides. The result may extend
// past the window it was clamped to; it is not clamped again.
func (iv Interval) Inflate(buffer time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-buffer), End: iv.End.Add(buffer)}
}

// Overlaps reports whether iv and other share any instant, touching
// endpoints included.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Start.After(other.End) && !other.Start.After(iv.End)
}

// SortByStart sorts ivs ascending by Start, keeping the input order of
// intervals that start together.
func SortByStart(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		return ivs[i].Start.Before(ivs[j].Start)
	})
}

// MergeSorted unions a slice already sorted by Start into the minimal set of
// disjoint intervals. An interval whose Start is <= the accumulated End is
// folded in, so touching intervals merge. The input is not modified.
func MergeSorted(ivs []Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if len(out) == 0 || !out[len(out)-1].Overlaps(iv) {
			out = append(out, iv)
			continue
		}
		last := &out[len(out)-1]
		if iv.End.After(last.End) {
			last.End = iv.End
		}
	}
	return out
}
