package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/freeslots"
)

// maxOccurrences caps the expansion of a single recurring event.
const maxOccurrences = 500

// expand turns parsed events into concrete occurrences overlapping
// [from, to). Timed occurrences are rendered as RFC 3339 in loc; all-day ones
// keep bare dates.
func expand(events []vevent, from, to time.Time, loc *time.Location, source string) []calendar.Event {
	overrides := make(map[string][]vevent)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	out := []calendar.Event{}
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			if ev.Status != statusCancelled && !hasBase(events, ev.UID) && overlaps(ev.Start, ev.End, from, to) {
				out = append(out, render(ev, ev.Start, ev.End, "", loc, source))
			}
			continue
		}
		if ev.RRule == "" {
			if overlaps(ev.Start, ev.End, from, to) {
				out = append(out, render(ev, ev.Start, ev.End, "", loc, source))
			}
			continue
		}
		out = append(out, expandRecurring(ev, overrides[ev.UID], from, to, loc, source)...)
	}
	return out
}

func expandRecurring(ev vevent, overrides []vevent, from, to time.Time, loc *time.Location, source string) []calendar.Event {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	zone := ev.Start.Location()
	starts := set.Between(from.Add(-dur).In(zone), to.In(zone), true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	var out []calendar.Event
	for _, s := range starts {
		start, end := s, s.Add(dur)
		if ev.AllDay {
			start = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, zone)
			end = start.AddDate(0, 0, int(dur/(24*time.Hour)))
		}
		inst := ev
		if o, ok := findOverride(overrides, s); ok {
			if o.Status == statusCancelled {
				continue
			}
			inst, start, end = o, o.Start, o.End
		}
		if !overlaps(start, end, from, to) {
			continue
		}
		out = append(out, render(inst, start, end, instanceSuffix(s), loc, source))
	}
	return out
}

func findOverride(overrides []vevent, start time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return vevent{}, false
}

func hasBase(events []vevent, uid string) bool {
	for _, ev := range events {
		if ev.UID == uid && ev.RecurrenceID == nil {
			return true
		}
	}
	return false
}

// overlaps treats zero-length events as occupying their start instant.
func overlaps(start, end, from, to time.Time) bool {
	if end.Equal(start) {
		return !start.Before(from) && start.Before(to)
	}
	return start.Before(to) && end.After(from)
}

func instanceSuffix(start time.Time) string {
	return "_" + start.UTC().Format(dateTimeLayout+"Z")
}

func render(ev vevent, start, end time.Time, suffix string, loc *time.Location, source string) calendar.Event {
	out := calendar.Event{
		ID:      ev.UID + suffix,
		Summary: ev.Summary,
		Status:  ev.Status,
		Source:  source,
	}
	if ev.AllDay {
		out.Start = start.Format(freeslots.DateLayout)
		out.End = end.Format(freeslots.DateLayout)
	} else {
		out.Start = start.In(loc).Format(time.RFC3339)
		out.End = end.In(loc).Format(time.RFC3339)
	}
	return out
}
