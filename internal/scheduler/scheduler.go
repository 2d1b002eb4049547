// Package scheduler runs the tension return loop on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/tensionservice"
)

// Returner performs one return pass.
type Returner interface {
	Return(ctx context.Context) (tensionservice.ReturnResult, error)
}

// Scheduler triggers Returner.Return on every tick of a cron spec.
type Scheduler struct {
	spec     string
	returner Returner
	logger   *slog.Logger
	cron     *cron.Cron
}

// Validate checks a standard five-field cron spec (descriptors such as
// "@hourly" and "@every 30m" are accepted too).
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: cron spec %q: %w", apperr.ErrInvalidInput, spec, err)
	}
	return nil
}

// New creates a Scheduler evaluated in loc.
func New(spec string, loc *time.Location, r Returner, logger *slog.Logger) (*Scheduler, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	return &Scheduler{
		spec:     spec,
		returner: r,
		logger:   logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running pass to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler: started", slog.String("spec", s.spec))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.returner.Return(ctx)
	if err != nil {
		s.logger.Error("scheduler: return failed", slog.String("error", err.Error()))
		return
	}
	if res.Tension == nil {
		s.logger.Debug("scheduler: nothing to return")
		return
	}
	s.logger.Info("scheduler: tension returned",
		slog.Int64("id", res.Tension.ID),
		slog.String("reason", string(res.Reason)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
