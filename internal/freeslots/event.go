package freeslots

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/helix/internal/apperr"
)

// DateLayout is the bare calendar date format used by all-day events and
// request dates.
const DateLayout = "2006-01-02"

// BusyEvent is a calendar event as seen by the finder. A zero Start or End
// means the endpoint was missing.
type BusyEvent struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Timed reports whether the event has both endpoints as timestamps. Only
// timed events block slots; all-day events are opaque.
func (e BusyEvent) Timed() bool {
	return !e.AllDay && !e.Start.IsZero() && !e.End.IsZero()
}

// ParseBusyEvent builds a BusyEvent from raw endpoints as delivered by
// calendar providers: RFC 3339 timestamps, bare YYYY-MM-DD dates, or empty
// strings for missing endpoints.
func ParseBusyEvent(start, end string) (BusyEvent, error) {
	var ev BusyEvent
	s, sDate, err := parseEndpoint(start)
	if err != nil {
		return BusyEvent{}, fmt.Errorf("event start: %w", err)
	}
	e, eDate, err := parseEndpoint(end)
	if err != nil {
		return BusyEvent{}, fmt.Errorf("event end: %w", err)
	}
	ev.Start, ev.End = s, e
	ev.AllDay = sDate || eDate
	return ev, nil
}

func parseEndpoint(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if len(raw) == len(DateLayout) {
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: malformed date %q", apperr.ErrInvalidInput, raw)
		}
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: malformed timestamp %q", apperr.ErrInvalidInput, raw)
	}
	return t, false, nil
}
