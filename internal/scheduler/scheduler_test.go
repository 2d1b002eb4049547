package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/tension"
	"github.com/starford/helix/internal/tensionservice"
)

type countingReturner struct {
	calls atomic.Int32
	err   error
}

func (c *countingReturner) Return(context.Context) (tensionservice.ReturnResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return tensionservice.ReturnResult{}, c.err
	}
	return tensionservice.ReturnResult{Tension: &tension.Tension{ID: 1}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("*/15 * * * *"))
	require.NoError(t, Validate("@every 30m"))
	require.ErrorIs(t, Validate("every day"), apperr.ErrInvalidInput)
	require.ErrorIs(t, Validate("* * * * * *"), apperr.ErrInvalidInput)
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("nope", nil, &countingReturner{}, quietLogger())
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestTick(t *testing.T) {
	r := &countingReturner{}
	s, err := New("@hourly", time.UTC, r, quietLogger())
	require.NoError(t, err)

	s.tick(context.Background())
	require.Equal(t, int32(1), r.calls.Load())

	r.err = errors.New("boom")
	s.tick(context.Background())
	require.Equal(t, int32(2), r.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.tick(ctx)
	require.Equal(t, int32(2), r.calls.Load())
}

func TestRun_FiresAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &countingReturner{}
	s, err := New("@every 1s", time.UTC, r, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
