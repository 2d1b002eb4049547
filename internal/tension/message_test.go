package tension

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func sample(id int64, title string, v Vector) Tension {
	created := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	return Tension{
		ID:        id,
		Title:     title,
		Status:    StatusHeld,
		Charge:    4,
		Vector:    v,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestFormatReturn_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	tests := []struct {
		name   string
		t      Tension
		reason string
	}{
		{"return_message", sample(12, "Reply to the landlord", VectorMessage), "due"},
		{"return_decision", sample(7, "Choose a venue", VectorDecision), "top_score_no_repeat"},
		{"return_unknown", sample(3, "Tax paperwork", VectorUnknown), "top_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(FormatReturn(tt.t, tt.reason)))
		})
	}
}

func TestSuggestForm(t *testing.T) {
	tests := []struct {
		v    Vector
		want string
	}{
		{VectorMessage, "Draft a message?"},
		{VectorAction, "Do a 5-minute action now?"},
		{VectorDecision, "Decide now or schedule 15 minutes of focus?"},
		{VectorMeeting, "15 minutes of focus today?"},
		{VectorUnknown, "15 minutes of focus today?"},
		{Vector(" Message "), "Draft a message?"},
		{Vector(""), "15 minutes of focus today?"},
	}
	for _, tt := range tests {
		t.Run(string(tt.v), func(t *testing.T) {
			require.Equal(t, tt.want, SuggestForm(tt.v))
		})
	}
}

func TestFormatList(t *testing.T) {
	require.Equal(t, []string{"No active tensions."}, FormatList(nil, 100))

	ts := []Tension{
		sample(1, "First", VectorAction),
		sample(2, "Second", VectorMessage),
		sample(3, "Third", VectorDrop),
	}
	all := FormatList(ts, 0)
	require.Len(t, all, 1)
	require.True(t, strings.HasPrefix(all[0], "Active tensions:\n#1 | First"))

	chunks := FormatList(ts, 80)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 80)
	}
	require.Equal(t, strings.Join(chunks, "\n"), all[0])
}

func TestStatusActive(t *testing.T) {
	require.True(t, StatusHeld.Active())
	require.True(t, StatusForming.Active())
	require.False(t, StatusReleased.Active())
	require.False(t, StatusParked.Active())
	require.False(t, StatusDropped.Active())
}

func TestTensionDue(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	tn := sample(1, "x", VectorAction)
	require.False(t, tn.Due(now))

	at := now
	tn.ReturnAt = &at
	require.True(t, tn.Due(now))

	later := now.Add(time.Minute)
	tn.ReturnAt = &later
	require.False(t, tn.Due(now))
}
