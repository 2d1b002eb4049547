package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// vevent is one VEVENT with its times resolved.
type vevent struct {
	UID          string
	Summary      string
	Status       string
	Start        time.Time
	End          time.Time
	AllDay       bool
	RRule        string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

const statusCancelled = "cancelled"

// parse decodes an ICS payload. Floating times are read in loc. Events that
// cannot be decoded are returned as skipped errors without failing the file.
func parse(data []byte, loc *time.Location) ([]vevent, []error, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	var (
		out     []vevent
		skipped []error
	)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		// A cancelled instance of a series stays as an override so expand
		// can suppress that occurrence.
		if ev.Status == statusCancelled && ev.RecurrenceID == nil {
			continue
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var ev vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("ics: event without UID")
	}
	ev.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		ev.Status = strings.ToLower(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, fmt.Errorf("ics: event %s without DTSTART", ev.UID)
	}
	start, allDay, err := propTime(dtStart.Value, dtStart.ICalParameters, loc)
	if err != nil {
		return ev, fmt.Errorf("ics: event %s DTSTART: %w", ev.UID, err)
	}
	ev.Start, ev.AllDay = start, allDay

	switch dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtEnd != nil:
		end, _, err := propTime(dtEnd.Value, dtEnd.ICalParameters, loc)
		if err != nil {
			return ev, fmt.Errorf("ics: event %s DTEND: %w", ev.UID, err)
		}
		ev.End = end
	case allDay:
		ev.End = start.AddDate(0, 0, 1)
	default:
		ev.End = start
	}
	if ev.End.Before(ev.Start) {
		return ev, fmt.Errorf("ics: event %s ends before it starts", ev.UID)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := propTime(part, p.ICalParameters, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, _, err := propTime(p.Value, p.ICalParameters, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

// propTime decodes a DATE or DATE-TIME value. UTC values end in Z; a TZID
// parameter names the zone; anything else is floating and read in loc.
func propTime(value string, params map[string][]string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	isDate := !strings.Contains(value, "T")
	if vs := params["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		t, err := time.ParseInLocation(dateLayout, value, loc)
		return t, true, err
	}
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(dateTimeLayout+"Z", value)
		return t, false, err
	}
	zone := loc
	if tz := params["TZID"]; len(tz) > 0 {
		if l, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			zone = l
		}
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, zone)
	return t, false, err
}
