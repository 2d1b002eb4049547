// Package freeslots turns busy calendar events into bookable windows inside a
// daily work window.
//
// Find is a pure function over already-validated input. Raw user input goes
// through Params.Request and ParseBusyEvent first; those are the only places
// that can fail.
package freeslots

import (
	"time"

	"github.com/starford/helix/internal/interval"
)

// Slot is a free window of exactly the requested duration.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Request holds the validated inputs of one free-slot computation.
type Request struct {
	Location  *time.Location
	Date      time.Time // only the calendar date is used
	Duration  time.Duration
	WorkStart Clock
	WorkEnd   Clock
	Buffer    time.Duration
	MaxSlots  int
}

// Window returns the work window [day_start, day_end) for the requested date.
func (r Request) Window() interval.Interval {
	loc := r.location()
	y, m, d := r.Date.Date()
	return interval.New(
		time.Date(y, m, d, r.WorkStart.Hour, r.WorkStart.Minute, 0, 0, loc),
		time.Date(y, m, d, r.WorkEnd.Hour, r.WorkEnd.Minute, 0, 0, loc),
	)
}

// Day returns midnight of the requested date in the request location.
func (r Request) Day() time.Time {
	y, m, d := r.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.location())
}

func (r Request) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Find returns up to req.MaxSlots free slots in chronological order.
//
// Timed events are converted to the request location, clamped to the work
// window, padded by the buffer and only then merged; all-day and half-open
// events never block anything. Each free gap contributes at most one slot,
// starting at the beginning of the gap.
func Find(events []BusyEvent, req Request) []Slot {
	slots := make([]Slot, 0, max(req.MaxSlots, 0))
	if req.MaxSlots <= 0 || req.Duration <= 0 {
		return slots
	}

	loc := req.location()
	window := req.Window()

	busy := make([]interval.Interval, 0, len(events))
	for _, ev := range events {
		if !ev.Timed() {
			continue
		}
		clamped, ok := interval.New(ev.Start.In(loc), ev.End.In(loc)).Clamp(window)
		if !ok {
			continue
		}
		busy = append(busy, clamped.Inflate(req.Buffer))
	}
	interval.SortByStart(busy)

	cursor := window.Start
	for _, b := range interval.MergeSorted(busy) {
		if gap := interval.New(cursor, b.Start); !gap.Empty() && gap.Duration() >= req.Duration {
			slots = append(slots, Slot{Start: cursor, End: cursor.Add(req.Duration)})
			if len(slots) >= req.MaxSlots {
				return slots
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if interval.New(cursor, window.End).Duration() >= req.Duration && len(slots) < req.MaxSlots {
		slots = append(slots, Slot{Start: cursor, End: cursor.Add(req.Duration)})
	}
	return slots
}
