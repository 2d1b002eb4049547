// Package tensionservice coordinates tension capture, updates and the
// return loop on top of the store.
package tensionservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/selection"
	"github.com/starford/helix/internal/sse"
	"github.com/starford/helix/internal/store"
	"github.com/starford/helix/internal/tension"
)

// Publisher receives change notifications.
type Publisher interface {
	Publish(sse.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event) {}

// Service is the tension use-case layer.
type Service struct {
	store  store.Store
	pub    Publisher
	now    func() time.Time
	logger *slog.Logger

	// returnMu keeps concurrent returns in this process from contending
	// for the store's write lock.
	returnMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change notification sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a tension service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		pub:    nopPublisher{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
}

// Capture validates in and stores a new tension with its captured event.
func (s *Service) Capture(ctx context.Context, in CaptureInput, actor tension.Actor) (tension.Tension, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return tension.Tension{}, invalid(err)
	}

	t := tension.Tension{
		Title:     in.Title,
		Note:      in.Note,
		Status:    tension.StatusHeld,
		Charge:    tension.DefaultCharge,
		Vector:    tension.VectorUnknown,
		ReturnAt:  in.ReturnAt,
		CreatedAt: s.now().UTC(),
	}
	if in.Charge != nil {
		t.Charge = *in.Charge
	}
	if in.Vector != "" {
		t.Vector = in.Vector
	}
	if in.Status != "" {
		t.Status = in.Status
	}

	created, err := s.store.CreateTension(ctx, t, actor)
	if err != nil {
		return tension.Tension{}, err
	}
	s.logger.Info("tension captured", slog.Int64("id", created.ID), slog.Int("charge", created.Charge))
	s.pub.Publish(sse.Event{Type: sse.TypeTensionCaptured, Data: created})
	return created, nil
}

// Get returns one tension.
func (s *Service) Get(ctx context.Context, id int64) (tension.Tension, error) {
	return s.store.GetTension(ctx, id)
}

// ListActive returns held and forming tensions, newest first.
func (s *Service) ListActive(ctx context.Context, limit int) ([]tension.Tension, error) {
	return s.store.ListActive(ctx, clampLimit(limit))
}

// Search finds tensions whose title or note contains query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]tension.Tension, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid(fmt.Errorf("q: cannot be blank"))
	}
	return s.store.Search(ctx, query, clampLimit(limit))
}

// Events returns the event log of one tension.
func (s *Service) Events(ctx context.Context, id int64) ([]tension.Event, error) {
	return s.store.Events(ctx, id)
}

// Update applies in and logs one change event per modified field.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor tension.Actor) (tension.Tension, error) {
	if in.Vector != nil {
		v := tension.Vector(strings.ToLower(strings.TrimSpace(string(*in.Vector))))
		in.Vector = &v
	}
	if in.Status != nil {
		st := tension.Status(strings.ToLower(strings.TrimSpace(string(*in.Status))))
		in.Status = &st
	}
	if err := in.Validate(); err != nil {
		return tension.Tension{}, invalid(err)
	}

	updated, err := s.store.UpdateTension(ctx, id, store.Patch{
		Charge:      in.Charge,
		Vector:      in.Vector,
		Status:      in.Status,
		ReturnAt:    in.ReturnAt,
		ClearReturn: in.ClearReturn,
	}, actor, s.now())
	if err != nil {
		return tension.Tension{}, err
	}
	s.logger.Info("tension updated", slog.Int64("id", id))
	s.pub.Publish(sse.Event{Type: sse.TypeTensionUpdated, Data: updated})
	return updated, nil
}

// Postpone schedules the tension to return after minutes.
func (s *Service) Postpone(ctx context.Context, id int64, minutes int, actor tension.Actor) (tension.Tension, error) {
	if err := validateMinutes(minutes); err != nil {
		return tension.Tension{}, invalid(err)
	}
	now := s.now()
	updated, err := s.store.Postpone(ctx, id, now.Add(time.Duration(minutes)*time.Minute), actor, now)
	if err != nil {
		return tension.Tension{}, err
	}
	s.logger.Info("tension postponed", slog.Int64("id", id), slog.Int("minutes", minutes))
	s.pub.Publish(sse.Event{Type: sse.TypeTensionPostponed, Data: updated})
	return updated, nil
}

// ReturnResult is the outcome of one return pass.
type ReturnResult struct {
	Tension    *tension.Tension `json:"tension"`
	Reason     selection.Reason `json:"reason"`
	Suggestion string           `json:"suggestion,omitempty"`
	Message    string           `json:"message"`
}

// Return picks the next tension to resurface, logs a returned event for it,
// and renders the message shown to the user. When nothing is active the
// result carries ReasonEmpty and no event is written.
func (s *Service) Return(ctx context.Context) (ReturnResult, error) {
	s.returnMu.Lock()
	defer s.returnMu.Unlock()

	now := s.now()
	var (
		res    selection.Result
		lastID int64
	)
	err := s.store.Return(ctx, func(active []tension.Tension, last int64) (*tension.Tension, string) {
		lastID = last
		res = selection.PickNext(active, last, now)
		return res.Tension, string(res.Reason)
	}, now)
	if err != nil {
		return ReturnResult{}, err
	}
	if res.Empty() {
		s.logger.Debug("return: nothing active")
		return ReturnResult{Reason: res.Reason, Message: tension.EmptyReturnMessage}, nil
	}

	s.logger.Info("tension returned",
		slog.Int64("id", res.Tension.ID),
		slog.String("reason", string(res.Reason)),
		slog.Int64("previous", lastID))

	out := ReturnResult{
		Tension:    res.Tension,
		Reason:     res.Reason,
		Suggestion: tension.SuggestForm(res.Tension.Vector),
		Message:    tension.FormatReturn(*res.Tension, string(res.Reason)),
	}
	s.pub.Publish(sse.Event{Type: sse.TypeTensionReturned, Data: out})
	return out, nil
}
