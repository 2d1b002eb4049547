// Package calendar merges events from the configured calendar sources and
// answers day listings and free-slot queries over them.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/freeslots"
)

// Event is a calendar entry normalized across sources. Start and End keep
// the source's own encoding: an RFC 3339 timestamp for timed events, a bare
// YYYY-MM-DD date for all-day ones, or empty when missing.
type Event struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Status  string `json:"status,omitempty"`
	Source  string `json:"source,omitempty"`
	Link    string `json:"html_link,omitempty"`
}

// Busy converts the event for the free-slot finder.
func (e Event) Busy() (freeslots.BusyEvent, error) {
	return freeslots.ParseBusyEvent(e.Start, e.End)
}

// Source lists the events overlapping [from, to).
type Source interface {
	Name() string
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

// NewEvent is a timed event to create on a writable source.
type NewEvent struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// Writer is a source that can create events.
type Writer interface {
	CreateEvent(ctx context.Context, ev NewEvent) (Event, error)
}

// MultiSource queries several sources and merges their events. Sources that
// are not connected are skipped as long as at least one answered.
type MultiSource []Source

// Name implements Source.
func (m MultiSource) Name() string { return "multi" }

// Events implements Source.
func (m MultiSource) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("no calendar source configured: %w", apperr.ErrNotConnected)
	}
	out := []Event{}
	var notConnected error
	answered := 0
	for _, src := range m {
		evs, err := src.Events(ctx, from, to)
		if errors.Is(err, apperr.ErrNotConnected) {
			notConnected = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		answered++
		for _, ev := range evs {
			if ev.Source == "" {
				ev.Source = src.Name()
			}
			out = append(out, ev)
		}
	}
	if answered == 0 {
		return nil, notConnected
	}
	sortEvents(out)
	return out, nil
}

// sortEvents orders events by start instant. All-day and unparseable
// events come first, ordered by their raw start.
func sortEvents(evs []Event) {
	key := func(e Event) (time.Time, bool) {
		if len(e.Start) == len(freeslots.DateLayout) {
			return time.Time{}, false
		}
		t, err := time.Parse(time.RFC3339, e.Start)
		return t, err == nil
	}
	sort.SliceStable(evs, func(i, j int) bool {
		ti, oki := key(evs[i])
		tj, okj := key(evs[j])
		switch {
		case oki != okj:
			return !oki
		case !oki:
			return evs[i].Start < evs[j].Start
		default:
			return ti.Before(tj)
		}
	})
}
