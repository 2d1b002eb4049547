package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/calendar/ics"
	"github.com/starford/helix/internal/tensionservice"
	"github.com/starford/helix/internal/testutil"
)

const meetingCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:sync\r\nSUMMARY:Sync\r\n" +
	"DTSTART;TZID=Europe/Bucharest:20260209T100000\r\nDTEND;TZID=Europe/Bucharest:20260209T110000\r\n" +
	"END:VEVENT\r\nEND:VCALENDAR\r\n"

var fixedNow = time.Date(2026, 2, 9, 6, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*Server, *ics.Source) {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Bucharest")
	require.NoError(t, err)

	_, fs := testutil.TestCalendarDir(t)
	require.NoError(t, fs.Write("work.ics", []byte(meetingCalendar)))
	src := ics.New(fs, loc, nil)

	clock := func() time.Time { return fixedNow }
	cal := calendar.NewService(src, loc, calendar.WithClock(clock))
	tensions := tensionservice.NewService(testutil.TestDB(t), tensionservice.WithClock(clock))
	return New(cal, tensions, src), src
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "find_free_slots":
		result, err = srv.findFreeSlots(ctx, req)
	case "return_tension":
		result, err = srv.returnTension(ctx, req)
	case "capture_tension":
		result, err = srv.captureTension(ctx, req)
	case "list_tensions":
		result, err = srv.listTensions(ctx, req)
	case "postpone_tension":
		result, err = srv.postponeTension(ctx, req)
	case "import_calendar":
		result, err = srv.importCalendar(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	require.NoError(t, err, "tool %s", name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestFindFreeSlots(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "find_free_slots", map[string]any{"date": "2026-02-09"})
	require.False(t, r.IsError, resultText(r))
	text := resultText(r)
	require.Contains(t, text, `"timezone": "Europe/Bucharest"`)
	require.Contains(t, text, "2026-02-09T09:00:00+02:00")
	require.Contains(t, text, "2026-02-09T11:10:00+02:00")
	require.NotContains(t, text, "2026-02-09T10:")
}

func TestFindFreeSlots_InvalidParams(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "find_free_slots", map[string]any{"work_start": "18:00", "work_end": "09:00"})
	require.True(t, r.IsError)
	require.Contains(t, resultText(r), "work_end")

	r = callTool(t, srv, "find_free_slots", map[string]any{"duration_min": "thirty"})
	require.True(t, r.IsError)
}

func TestCaptureListReturn(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "return_tension", map[string]any{})
	require.Equal(t, "No active tensions yet. Capture one to get started.", resultText(r))

	r = callTool(t, srv, "capture_tension", map[string]any{"title": "Call the bank", "charge": 4, "vector": "message"})
	require.False(t, r.IsError, resultText(r))
	require.Contains(t, resultText(r), `"title": "Call the bank"`)

	r = callTool(t, srv, "list_tensions", map[string]any{})
	require.Contains(t, resultText(r), "#1 | Call the bank | status=held | charge=4 | vector=message")

	r = callTool(t, srv, "return_tension", map[string]any{})
	text := resultText(r)
	require.True(t, strings.HasPrefix(text, "Returning a tension"), text)
	require.Contains(t, text, "Form: Draft a message?")
}

func TestCaptureTension_Invalid(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "capture_tension", map[string]any{"title": "x", "charge": 9})
	require.True(t, r.IsError)
	require.Contains(t, resultText(r), "charge")
}

func TestPostponeTension(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "capture_tension", map[string]any{"title": "Taxes"})

	r := callTool(t, srv, "postpone_tension", map[string]any{"id": 1, "minutes": 120})
	require.False(t, r.IsError, resultText(r))
	require.Equal(t, "#1 returns at 2026-02-09 10:00 EET", resultText(r))

	r = callTool(t, srv, "postpone_tension", map[string]any{"id": 42, "minutes": 5})
	require.True(t, r.IsError)

	r = callTool(t, srv, "postpone_tension", map[string]any{"id": 1})
	require.True(t, r.IsError)
}

func TestImportCalendar_DataURI(t *testing.T) {
	srv, src := testServer(t)
	uri := "data:text/calendar;base64," + base64.StdEncoding.EncodeToString([]byte(meetingCalendar))

	r := callTool(t, srv, "import_calendar", map[string]any{"url": uri, "filename": "../Team Sync.txt"})
	require.False(t, r.IsError, resultText(r))
	require.Contains(t, resultText(r), `"file":"Team_Sync.ics"`)

	files, err := src.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestImportCalendar_Rejects(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "import_calendar", map[string]any{"url": "data:image/png;base64,AAAA"})
	require.True(t, r.IsError)

	r = callTool(t, srv, "import_calendar", map[string]any{"url": "http://127.0.0.1/cal.ics"})
	require.True(t, r.IsError)
	require.Contains(t, resultText(r), "blocked host")

	r = callTool(t, srv, "import_calendar", map[string]any{"url": "ftp://example.com/cal.ics"})
	require.True(t, r.IsError)

	bad := "data:text/calendar;base64," + base64.StdEncoding.EncodeToString([]byte("not a calendar"))
	r = callTool(t, srv, "import_calendar", map[string]any{"url": bad, "filename": "x.ics"})
	require.True(t, r.IsError)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "team.ics", sanitizeFilename("team.ics"))
	require.Equal(t, "basic.ics", sanitizeFilename("/calendar/ical/basic.ics"))
	require.Equal(t, "feed.ics", sanitizeFilename("feed"))
	require.Equal(t, "a_b.ics", sanitizeFilename("..\\a b.ics"))
	require.True(t, strings.HasSuffix(sanitizeFilename(".."), ".ics"))
}

func TestVectorsResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readVectorsResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents).Text
	require.Contains(t, text, "| decision |")
	require.Contains(t, text, "Decide now or schedule 15 minutes of focus?")
}
