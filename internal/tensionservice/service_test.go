package tensionservice

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/selection"
	"github.com/starford/helix/internal/sse"
	"github.com/starford/helix/internal/tension"
	"github.com/starford/helix/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	clk := &clock{now: time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)}
	svc := NewService(testutil.TestDB(t), WithPublisher(rec), WithClock(clk.Now))
	return svc, rec
}

func intPtr(v int) *int { return &v }

func capture(t *testing.T, svc *Service, title string, charge int) tension.Tension {
	t.Helper()
	created, err := svc.Capture(context.Background(), CaptureInput{Title: title, Charge: intPtr(charge)}, tension.ActorUser)
	require.NoError(t, err)
	return created
}

func TestCapture_Defaults(t *testing.T) {
	svc, rec := newTestService(t)

	got, err := svc.Capture(context.Background(), CaptureInput{Title: "  Book flights  ", Vector: " Action"}, tension.ActorUser)
	require.NoError(t, err)
	require.Equal(t, "Book flights", got.Title)
	require.Equal(t, tension.DefaultCharge, got.Charge)
	require.Equal(t, tension.VectorAction, got.Vector)
	require.Equal(t, tension.StatusHeld, got.Status)
	require.Equal(t, []string{sse.TypeTensionCaptured}, rec.types())

	zero, err := svc.Capture(context.Background(), CaptureInput{Title: "calm", Charge: intPtr(0)}, tension.ActorUser)
	require.NoError(t, err)
	require.Zero(t, zero.Charge)
}

func TestCapture_Validation(t *testing.T) {
	svc, rec := newTestService(t)
	tests := []struct {
		name  string
		in    CaptureInput
		field string
	}{
		{"blank title", CaptureInput{Title: "   "}, "title"},
		{"long title", CaptureInput{Title: strings.Repeat("x", MaxTitleLen+1)}, "title"},
		{"long note", CaptureInput{Title: "x", Note: strings.Repeat("n", MaxNoteLen+1)}, "note"},
		{"charge too high", CaptureInput{Title: "x", Charge: intPtr(6)}, "charge"},
		{"negative charge", CaptureInput{Title: "x", Charge: intPtr(-1)}, "charge"},
		{"unknown vector", CaptureInput{Title: "x", Vector: "teleport"}, "vector"},
		{"unknown status", CaptureInput{Title: "x", Status: "done"}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Capture(context.Background(), tt.in, tension.ActorUser)
			require.ErrorIs(t, err, apperr.ErrInvalidInput)
			require.Contains(t, err.Error(), tt.field)
		})
	}
	require.Empty(t, rec.types())
}

func TestUpdate(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	created := capture(t, svc, "x", 2)

	_, err := svc.Update(ctx, created.ID, UpdateInput{}, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	bad := tension.Vector("sideways")
	_, err = svc.Update(ctx, created.ID, UpdateInput{Vector: &bad}, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	at := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	_, err = svc.Update(ctx, created.ID, UpdateInput{ReturnAt: &at, ClearReturn: true}, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	status := tension.Status("Parked")
	got, err := svc.Update(ctx, created.ID, UpdateInput{Charge: intPtr(4), Status: &status}, tension.ActorUser)
	require.NoError(t, err)
	require.Equal(t, 4, got.Charge)
	require.Equal(t, tension.StatusParked, got.Status)

	_, err = svc.Update(ctx, 999, UpdateInput{Charge: intPtr(1)}, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.Equal(t, []string{sse.TypeTensionCaptured, sse.TypeTensionUpdated}, rec.types())
}

func TestPostpone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := capture(t, svc, "x", 2)

	got, err := svc.Postpone(ctx, created.ID, 120, tension.ActorUser)
	require.NoError(t, err)
	require.NotNil(t, got.ReturnAt)
	require.Equal(t, 2*time.Hour, got.ReturnAt.Sub(got.UpdatedAt))

	_, err = svc.Postpone(ctx, created.ID, 0, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Postpone(ctx, created.ID, MaxPostponeMin+1, tension.ActorUser)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t)
	capture(t, svc, "Renew passport", 3)

	got, err := svc.Search(context.Background(), "passport", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = svc.Search(context.Background(), "  ", 0)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestReturn_Empty(t *testing.T) {
	svc, rec := newTestService(t)
	got, err := svc.Return(context.Background())
	require.NoError(t, err)
	require.Nil(t, got.Tension)
	require.Equal(t, selection.ReasonEmpty, got.Reason)
	require.Equal(t, tension.EmptyReturnMessage, got.Message)
	require.Empty(t, rec.types())
}

func TestReturn_AlternatesAndLogs(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	a := capture(t, svc, "a", 4)
	b := capture(t, svc, "b", 4)

	first, err := svc.Return(ctx)
	require.NoError(t, err)
	require.Equal(t, a.ID, first.Tension.ID)
	require.Equal(t, selection.ReasonTopScore, first.Reason)
	require.Equal(t, "15 minutes of focus today?", first.Suggestion)
	require.Contains(t, first.Message, "reason=top_score")

	second, err := svc.Return(ctx)
	require.NoError(t, err)
	require.Equal(t, b.ID, second.Tension.ID)
	require.Equal(t, selection.ReasonTopScoreNoRepeat, second.Reason)

	third, err := svc.Return(ctx)
	require.NoError(t, err)
	require.Equal(t, a.ID, third.Tension.ID)
	require.Equal(t, selection.ReasonTopScore, third.Reason)

	events, err := svc.Events(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, tension.EventReturned, events[1].Type)
	require.Equal(t, tension.ActorHelix, events[1].Actor)

	require.Contains(t, rec.types(), sse.TypeTensionReturned)
}

func TestReturn_DueFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	capture(t, svc, "hot", 5)
	cold := capture(t, svc, "cold", 1)

	_, err := svc.Postpone(ctx, cold.ID, 1, tension.ActorUser)
	require.NoError(t, err)

	// The clock advances a second per call; jump past the postponement.
	svc.now = func() time.Time { return time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC) }

	got, err := svc.Return(ctx)
	require.NoError(t, err)
	require.Equal(t, cold.ID, got.Tension.ID)
	require.Equal(t, selection.ReasonDue, got.Reason)
}

func TestReturn_ConcurrentCallsNeverRepeat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := capture(t, svc, "a", 3)
	b := capture(t, svc, "b", 3)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Return(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var returned []tension.Event
	for _, id := range []int64{a.ID, b.ID} {
		evs, err := svc.Events(ctx, id)
		require.NoError(t, err)
		for _, ev := range evs {
			if ev.Type == tension.EventReturned {
				returned = append(returned, ev)
			}
		}
	}
	require.Len(t, returned, n)
	sort.Slice(returned, func(i, j int) bool { return returned[i].ID < returned[j].ID })
	for i := 1; i < len(returned); i++ {
		require.NotEqual(t, returned[i-1].TensionID, returned[i].TensionID, "return %d repeated the previous tension", i)
	}
}
