package selection

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/starford/helix/internal/tension"
)

var now = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func ts(id int64, charge int, createdAgo time.Duration) tension.Tension {
	created := now.Add(-createdAgo)
	return tension.Tension{
		ID:        id,
		Title:     "t",
		Status:    tension.StatusHeld,
		Charge:    charge,
		Vector:    tension.VectorUnknown,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func returning(t tension.Tension, at time.Time) tension.Tension {
	t.ReturnAt = &at
	return t
}

func withStatus(t tension.Tension, s tension.Status) tension.Tension {
	t.Status = s
	return t
}

func requirePicked(t *testing.T, got Result, id int64, reason Reason) {
	t.Helper()
	require.NotNil(t, got.Tension)
	require.Equal(t, id, got.Tension.ID)
	require.Equal(t, reason, got.Reason)
}

func TestPickNext_Empty(t *testing.T) {
	got := PickNext(nil, 0, now)
	require.True(t, got.Empty())
	require.Equal(t, ReasonEmpty, got.Reason)

	inactive := []tension.Tension{
		withStatus(ts(1, 5, time.Hour), tension.StatusReleased),
		withStatus(ts(2, 5, time.Hour), tension.StatusParked),
		withStatus(ts(3, 5, time.Hour), tension.StatusDropped),
	}
	got = PickNext(inactive, 0, now)
	require.Nil(t, got.Tension)
	require.Equal(t, ReasonEmpty, got.Reason)
}

func TestPickNext_DueBeatsCharge(t *testing.T) {
	in := []tension.Tension{
		ts(1, 5, time.Hour),
		returning(ts(2, 1, time.Hour), now.Add(-time.Minute)),
	}
	requirePicked(t, PickNext(in, 0, now), 2, ReasonDue)
}

func TestPickNext_DueAtExactlyNow(t *testing.T) {
	in := []tension.Tension{
		ts(1, 5, time.Hour),
		returning(ts(2, 1, time.Hour), now),
	}
	requirePicked(t, PickNext(in, 0, now), 2, ReasonDue)
}

func TestPickNext_FutureReturnIsNotDue(t *testing.T) {
	in := []tension.Tension{
		ts(1, 2, time.Hour),
		returning(ts(2, 4, time.Hour), now.Add(time.Hour)),
	}
	requirePicked(t, PickNext(in, 0, now), 2, ReasonTopScore)
}

func TestPickNext_DueOrdering(t *testing.T) {
	in := []tension.Tension{
		returning(ts(1, 3, time.Hour), now.Add(-time.Minute)),
		returning(ts(2, 3, 2*time.Hour), now.Add(-time.Hour)),
		returning(ts(3, 3, 3*time.Hour), now.Add(-time.Minute)),
	}
	requirePicked(t, PickNext(in, 0, now), 2, ReasonDue)

	// Same return time: older tension first.
	in = []tension.Tension{
		returning(ts(1, 3, time.Hour), now.Add(-time.Minute)),
		returning(ts(3, 3, 3*time.Hour), now.Add(-time.Minute)),
	}
	requirePicked(t, PickNext(in, 0, now), 3, ReasonDue)
}

func TestPickNext_DueAvoidsRepeat(t *testing.T) {
	in := []tension.Tension{
		returning(ts(1, 3, time.Hour), now.Add(-2*time.Hour)),
		returning(ts(2, 3, time.Hour), now.Add(-time.Hour)),
	}
	requirePicked(t, PickNext(in, 1, now), 2, ReasonDueNoRepeat)
}

func TestPickNext_SingleDueRepeats(t *testing.T) {
	in := []tension.Tension{
		returning(ts(1, 3, time.Hour), now.Add(-time.Hour)),
		ts(2, 5, time.Hour),
	}
	requirePicked(t, PickNext(in, 1, now), 1, ReasonDue)
}

func TestPickNext_LastReturnedNotOnTop(t *testing.T) {
	in := []tension.Tension{
		ts(1, 5, time.Hour),
		ts(2, 3, time.Hour),
	}
	requirePicked(t, PickNext(in, 2, now), 1, ReasonTopScore)
}

func TestPickNext_ChargeRanking(t *testing.T) {
	in := []tension.Tension{
		ts(1, 2, 5*time.Hour),
		ts(2, 4, time.Hour),
		ts(3, 4, 3*time.Hour),
	}
	// Highest charge; the older of the two wins the tie.
	requirePicked(t, PickNext(in, 0, now), 3, ReasonTopScore)
	requirePicked(t, PickNext(in, 3, now), 2, ReasonTopScoreNoRepeat)
}

func TestPickNext_SingleActiveRepeats(t *testing.T) {
	in := []tension.Tension{
		ts(1, 3, time.Hour),
		withStatus(ts(2, 5, time.Hour), tension.StatusDropped),
	}
	requirePicked(t, PickNext(in, 1, now), 1, ReasonTopScore)
}

func TestPickNext_IDBreaksFullTie(t *testing.T) {
	in := []tension.Tension{
		ts(9, 3, time.Hour),
		ts(4, 3, time.Hour),
	}
	requirePicked(t, PickNext(in, 0, now), 4, ReasonTopScore)
}

func TestPickNext_Forming(t *testing.T) {
	in := []tension.Tension{withStatus(ts(1, 1, time.Hour), tension.StatusForming)}
	requirePicked(t, PickNext(in, 0, now), 1, ReasonTopScore)
}

func TestPickNext_InactiveDueIgnored(t *testing.T) {
	in := []tension.Tension{
		withStatus(returning(ts(1, 3, time.Hour), now.Add(-time.Hour)), tension.StatusParked),
		ts(2, 1, time.Hour),
	}
	requirePicked(t, PickNext(in, 0, now), 2, ReasonTopScore)
}

func TestPickNext_DoesNotMutateInput(t *testing.T) {
	in := []tension.Tension{
		ts(1, 1, time.Hour),
		ts(2, 5, 2*time.Hour),
		returning(ts(3, 2, 3*time.Hour), now.Add(-time.Minute)),
	}
	snapshot := make([]tension.Tension, len(in))
	copy(snapshot, in)

	got := PickNext(in, 0, now)
	got.Tension.Title = "changed"

	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestPickNext_Deterministic(t *testing.T) {
	in := []tension.Tension{
		ts(1, 3, time.Hour),
		ts(2, 3, time.Hour),
		ts(3, 3, time.Hour),
		returning(ts(4, 1, time.Hour), now.Add(time.Hour)),
	}
	first := PickNext(in, 1, now)
	for range 10 {
		again := PickNext(in, 1, now)
		require.Equal(t, first.Reason, again.Reason)
		require.Equal(t, first.Tension.ID, again.Tension.ID)
	}
	requirePicked(t, first, 2, ReasonTopScoreNoRepeat)
}
