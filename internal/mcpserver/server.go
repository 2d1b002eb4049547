// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the helix calendar and tension tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/calendar/ics"
	"github.com/starford/helix/internal/freeslots"
	"github.com/starford/helix/internal/tension"
	"github.com/starford/helix/internal/tensionservice"
)

// listChunkLen caps one chunk of the list_tensions output.
const listChunkLen = 4000

// Server wraps the MCP server with the helix tools.
type Server struct {
	mcp      *server.MCPServer
	calendar *calendar.Service
	tensions *tensionservice.Service
	files    *ics.Source
}

// New creates an MCP server. files may be nil, in which case the
// import_calendar tool is not registered.
func New(cal *calendar.Service, tensions *tensionservice.Service, files *ics.Source) *Server {
	s := &Server{calendar: cal, tensions: tensions, files: files}

	s.mcp = server.NewMCPServer(
		"Helix",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("find_free_slots",
		mcp.WithDescription("Find the earliest free slots of a given length on one day of the user's calendar. "+
			"Busy events are padded by the buffer on both sides; all-day events do not block time."),
		mcp.WithString("date", mcp.Description("Day to search, YYYY-MM-DD (default today in the user's zone)")),
		mcp.WithString("timezone", mcp.Description("IANA zone overriding the user's zone")),
		mcp.WithNumber("duration_min", mcp.Description("Slot length in minutes (default 30)"), mcp.Min(1)),
		mcp.WithString("work_start", mcp.Description("Start of the work window, HH:MM (default 09:00)")),
		mcp.WithString("work_end", mcp.Description("End of the work window, HH:MM (default 18:00)")),
		mcp.WithNumber("buffer_min", mcp.Description("Padding around busy events in minutes (default 10)"), mcp.Min(1)),
		mcp.WithNumber("max_slots", mcp.Description("Maximum number of slots (default 3)"), mcp.Min(1)),
	), s.findFreeSlots)

	s.mcp.AddTool(mcp.NewTool("return_tension",
		mcp.WithDescription("Pick the next tension to bring back to the user's attention and log the return. "+
			"Due tensions come first, then the highest charge; the same tension is not returned twice in a row "+
			"when another one is available."),
	), s.returnTension)

	s.mcp.AddTool(mcp.NewTool("capture_tension",
		mcp.WithDescription("Capture a new open loop. Read the helix://vectors resource to pick a vector."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short description, up to 500 characters")),
		mcp.WithString("note", mcp.Description("Optional details")),
		mcp.WithNumber("charge", mcp.Description("Emotional weight 0-5 (default 3)"), mcp.Min(0), mcp.Max(5)),
		mcp.WithString("vector", mcp.Description("Kind of move that would release it"), mcp.Enum(vectorNames()...)),
	), s.captureTension)

	s.mcp.AddTool(mcp.NewTool("list_tensions",
		mcp.WithDescription("List active (held or forming) tensions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tensions (default 50)"), mcp.Min(1)),
	), s.listTensions)

	s.mcp.AddTool(mcp.NewTool("postpone_tension",
		mcp.WithDescription("Schedule a tension to return after the given number of minutes."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Tension id")),
		mcp.WithNumber("minutes", mcp.Required(), mcp.Description("Minutes from now"), mcp.Min(1)),
	), s.postponeTension)

	if files != nil {
		s.mcp.AddTool(mcp.NewTool("import_calendar",
			mcp.WithDescription("Save an iCalendar file into the local calendar directory so its events "+
				"count as busy time. Accepts an http(s) URL or a base64 data URI (data:text/calendar;base64,...)."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Source URL or data URI")),
			mcp.WithString("filename", mcp.Description("Target file name ending in .ics (derived from the URL if omitted)")),
		), s.importCalendar)
	}

	s.mcp.AddResource(
		mcp.NewResource(vectorsURI, "Tension vectors",
			mcp.WithResourceDescription("Valid tension vectors and the form suggested for each."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVectorsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func vectorNames() []string {
	out := make([]string, len(tension.Vectors))
	for i, v := range tension.Vectors {
		out[i] = string(v)
	}
	return out
}

// decode unmarshals tool arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findFreeSlots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := decode[freeslots.Params](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.calendar.FreeSlots(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) returnTension(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.tensions.Return(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

func (s *Server) captureTension(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[tensionservice.CaptureInput](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := s.tensions.Capture(ctx, in, tension.ActorUser)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(created)
}

func (s *Server) listTensions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, err := s.tensions.ListActive(ctx, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(tension.FormatList(ts, listChunkLen), "\n\n")), nil
}

func (s *Server) postponeTension(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minutes, err := req.RequireInt("minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updated, err := s.tensions.Postpone(ctx, int64(id), minutes, tension.ActorUser)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("#%d returns at %s", updated.ID,
		updated.ReturnAt.In(s.calendar.Location()).Format("2006-01-02 15:04 MST"))), nil
}

func (s *Server) readVectorsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      vectorsURI,
			MIMEType: "text/markdown",
			Text:     vectorGuide(),
		},
	}, nil
}
