package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/freeslots"
)

// Service answers calendar queries in the user's time zone.
type Service struct {
	source   Source
	writer   Writer
	loc      *time.Location
	defaults freeslots.Defaults
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithWriter sets the source used to create events.
func WithWriter(w Writer) Option {
	return func(s *Service) { s.writer = w }
}

// WithDefaults sets the free-slot defaults used for omitted parameters.
func WithDefaults(d freeslots.Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a calendar service reading from src in loc.
func NewService(src Source, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		source: src,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the user's time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Day is the event listing of one date.
type Day struct {
	Date     string  `json:"date"`
	Timezone string  `json:"timezone"`
	Events   []Event `json:"events"`
}

// Day lists the events of date (YYYY-MM-DD; empty means today).
func (s *Service) Day(ctx context.Context, date string) (Day, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return Day{}, err
	}
	evs, err := s.source.Events(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return Day{}, err
	}
	return Day{Date: day.Format(freeslots.DateLayout), Timezone: s.loc.String(), Events: evs}, nil
}

// FreeSlots is the answer to a free-slot query.
type FreeSlots struct {
	Date     string           `json:"date"`
	Timezone string           `json:"timezone"`
	Slots    []freeslots.Slot `json:"slots"`
}

// FreeSlots validates p, fetches the day's events, and runs the finder.
func (s *Service) FreeSlots(ctx context.Context, p freeslots.Params) (FreeSlots, error) {
	req, err := p.Request(s.loc, s.now(), s.defaults)
	if err != nil {
		return FreeSlots{}, err
	}
	day := req.Day()
	evs, err := s.source.Events(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return FreeSlots{}, err
	}

	busy := make([]freeslots.BusyEvent, 0, len(evs))
	for _, ev := range evs {
		b, err := ev.Busy()
		if err != nil {
			s.logger.Warn("calendar: skipping malformed event",
				slog.String("id", ev.ID),
				slog.String("source", ev.Source),
				slog.String("error", err.Error()))
			continue
		}
		busy = append(busy, b)
	}

	slots := freeslots.Find(busy, req)
	s.logger.Debug("calendar: free slots",
		slog.String("date", req.Date.Format(freeslots.DateLayout)),
		slog.Int("events", len(busy)),
		slog.Int("slots", len(slots)))

	return FreeSlots{
		Date:     req.Date.Format(freeslots.DateLayout),
		Timezone: req.Location.String(),
		Slots:    slots,
	}, nil
}

// CreateParams is the raw form of an event creation request.
type CreateParams struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	DurationMin int    `json:"duration_min"`
	Title       string `json:"title"`
}

// Validate implements validation.Validatable.
func (p CreateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Date, validation.Required, validation.Date(freeslots.DateLayout).Error("must be a date in YYYY-MM-DD format")),
		validation.Field(&p.StartTime, validation.Required, validation.By(func(v any) error {
			if _, err := freeslots.ParseClock(v.(string)); err != nil {
				return errors.New("must be a time of day in HH:MM format")
			}
			return nil
		})),
		validation.Field(&p.DurationMin, validation.Required.Error("must be positive"), validation.Min(1), validation.Max(24*60)),
		validation.Field(&p.Title, validation.Required, validation.Length(1, 500)),
	)
}

// CreateEvent creates a timed event on the writable source.
func (s *Service) CreateEvent(ctx context.Context, p CreateParams) (Event, error) {
	if s.writer == nil {
		return Event{}, fmt.Errorf("no writable calendar: %w", apperr.ErrNotConnected)
	}
	if err := p.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	day, _ := time.ParseInLocation(freeslots.DateLayout, p.Date, s.loc)
	clock, _ := freeslots.ParseClock(p.StartTime)
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour, clock.Minute, 0, 0, s.loc)

	ev, err := s.writer.CreateEvent(ctx, NewEvent{
		Summary: p.Title,
		Start:   start,
		End:     start.Add(time.Duration(p.DurationMin) * time.Minute),
	})
	if err != nil {
		return Event{}, err
	}
	s.logger.Info("calendar: event created", slog.String("id", ev.ID), slog.String("start", ev.Start))
	return ev, nil
}

func (s *Service) parseDate(date string) (time.Time, error) {
	if date == "" {
		now := s.now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}
	day, err := time.ParseInLocation(freeslots.DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date: must be a date in YYYY-MM-DD format", apperr.ErrInvalidInput)
	}
	return day, nil
}
