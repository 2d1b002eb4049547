package freeslots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/helix/internal/apperr"
)

// Defaults applied to omitted request parameters.
const (
	DefaultDurationMin = 30
	DefaultWorkStart   = "09:00"
	DefaultWorkEnd     = "18:00"
	DefaultBufferMin   = 10
	DefaultMaxSlots    = 3
)

// Params is the raw, user-facing form of a free-slot request. Nil fields take
// the defaults in Defaults.
type Params struct {
	Date        string `json:"date,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	DurationMin *int   `json:"duration_min,omitempty"`
	WorkStart   string `json:"work_start,omitempty"`
	WorkEnd     string `json:"work_end,omitempty"`
	BufferMin   *int   `json:"buffer_min,omitempty"`
	MaxSlots    *int   `json:"max_slots,omitempty"`
}

// Defaults are the fallbacks for omitted Params fields. The zero value uses
// the package constants.
type Defaults struct {
	DurationMin int
	WorkStart   string
	WorkEnd     string
	BufferMin   int
	MaxSlots    int
}

func (d Defaults) orBuiltin() Defaults {
	if d.DurationMin == 0 {
		d.DurationMin = DefaultDurationMin
	}
	if d.WorkStart == "" {
		d.WorkStart = DefaultWorkStart
	}
	if d.WorkEnd == "" {
		d.WorkEnd = DefaultWorkEnd
	}
	if d.BufferMin == 0 {
		d.BufferMin = DefaultBufferMin
	}
	if d.MaxSlots == 0 {
		d.MaxSlots = DefaultMaxSlots
	}
	return d
}

// Request validates p and converts it into a Request. loc is the user's
// zone, used unless p.Timezone overrides it; now picks the default date.
// Every failure wraps apperr.ErrInvalidInput.
func (p Params) Request(loc *time.Location, now time.Time, defaults Defaults) (Request, error) {
	d := defaults.orBuiltin()
	if p.DurationMin == nil {
		p.DurationMin = &d.DurationMin
	}
	if p.BufferMin == nil {
		p.BufferMin = &d.BufferMin
	}
	if p.MaxSlots == nil {
		p.MaxSlots = &d.MaxSlots
	}
	if p.WorkStart == "" {
		p.WorkStart = d.WorkStart
	}
	if p.WorkEnd == "" {
		p.WorkEnd = d.WorkEnd
	}

	if err := p.validate(); err != nil {
		return Request{}, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	if p.Timezone != "" {
		loc, _ = time.LoadLocation(p.Timezone) // validated above
	}
	if loc == nil {
		loc = time.UTC
	}

	n := now.In(loc)
	date := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	if p.Date != "" {
		date, _ = time.ParseInLocation(DateLayout, p.Date, loc)
	}
	ws, _ := ParseClock(p.WorkStart)
	we, _ := ParseClock(p.WorkEnd)

	return Request{
		Location:  loc,
		Date:      date,
		Duration:  time.Duration(*p.DurationMin) * time.Minute,
		WorkStart: ws,
		WorkEnd:   we,
		Buffer:    time.Duration(*p.BufferMin) * time.Minute,
		MaxSlots:  *p.MaxSlots,
	}, nil
}

func (p *Params) validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.Date, validation.Date(DateLayout).Error("must be a date in YYYY-MM-DD format")),
		validation.Field(&p.Timezone, validation.By(validTimezone)),
		validation.Field(&p.DurationMin, validation.Required.Error("must be positive"), validation.Min(1), validation.Max(24*60)),
		validation.Field(&p.WorkStart, validation.Required, validation.By(validClock)),
		validation.Field(&p.WorkEnd, validation.Required, validation.By(validClock)),
		validation.Field(&p.BufferMin, validation.Required.Error("must be positive"), validation.Min(1), validation.Max(24*60)),
		validation.Field(&p.MaxSlots, validation.Required, validation.Min(1), validation.Max(100)),
	); err != nil {
		return err
	}
	ws, _ := ParseClock(p.WorkStart)
	we, _ := ParseClock(p.WorkEnd)
	if !ws.Before(we) {
		return validation.Errors{"work_end": errors.New("must be after work_start")}
	}
	return nil
}

// ParseClock parses "HH:MM" (the hour may have one digit).
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return Clock{}, fmt.Errorf("malformed time of day %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return Clock{}, fmt.Errorf("malformed time of day %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return Clock{}, fmt.Errorf("malformed time of day %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Before reports whether c is earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	return c.Hour*60+c.Minute < other.Hour*60+other.Minute
}

// String formats c as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func validClock(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := ParseClock(s); err != nil {
		return errors.New("must be a time of day in HH:MM format")
	}
	return nil
}

func validTimezone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return errors.New("must be an IANA time zone name")
	}
	return nil
}
