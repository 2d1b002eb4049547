package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/calendar"
)

// Verify *Client satisfies the calendar interfaces at compile time.
var (
	_ calendar.Source = (*Client)(nil)
	_ calendar.Writer = (*Client)(nil)
)

const maxResults = 50

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

func (t eventTime) value() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type apiEvent struct {
	ID       string     `json:"id,omitempty"`
	Summary  string     `json:"summary,omitempty"`
	Status   string     `json:"status,omitempty"`
	HTMLLink string     `json:"htmlLink,omitempty"`
	Start    *eventTime `json:"start,omitempty"`
	End      *eventTime `json:"end,omitempty"`
}

func (e apiEvent) normalize() calendar.Event {
	ev := calendar.Event{
		ID:      e.ID,
		Summary: e.Summary,
		Status:  e.Status,
		Link:    e.HTMLLink,
		Source:  "google",
	}
	if e.Start != nil {
		ev.Start = e.Start.value()
	}
	if e.End != nil {
		ev.End = e.End.value()
	}
	return ev
}

// Events implements calendar.Source. Recurring events are expanded by the
// API into single instances.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	q := url.Values{}
	q.Set("timeMin", from.Format(time.RFC3339))
	q.Set("timeMax", to.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", fmt.Sprint(maxResults))

	var body struct {
		Items []apiEvent `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/calendars/primary/events?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	out := make([]calendar.Event, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, it.normalize())
	}
	return out, nil
}

// CreateEvent implements calendar.Writer.
func (c *Client) CreateEvent(ctx context.Context, ev calendar.NewEvent) (calendar.Event, error) {
	in := apiEvent{
		Summary: ev.Summary,
		Start:   &eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.Start.Location().String()},
		End:     &eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.End.Location().String()},
	}
	var created apiEvent
	if err := c.do(ctx, http.MethodPost, "/calendars/primary/events", in, &created); err != nil {
		return calendar.Event{}, err
	}
	return created.normalize(), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("google: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("google: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return fmt.Errorf("google: refresh token rejected, reconnect: %w", apperr.ErrNotConnected)
		}
		return fmt.Errorf("google: %s %s: %w: %w", method, path, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("google: authorization rejected, reconnect: %w", apperr.ErrNotConnected)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("google: %s: %w: status %d: %s", method, apperr.ErrUpstream, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("google: decode response: %w: %w", apperr.ErrUpstream, err)
	}
	return nil
}
