package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/storage"
	"github.com/starford/helix/internal/tension"
	"github.com/starford/helix/internal/tensionservice"
)

// Tension is the tension response type (aliased from the domain layer).
type Tension = tension.Tension

// TensionEvent is one entry of a tension's event log.
type TensionEvent = tension.Event

// ReturnResponse is the outcome of POST /return.
type ReturnResponse = tensionservice.ReturnResult

// CalendarDay lists the normalized events of one day.
type CalendarDay = calendar.Day

// FreeSlotsResponse lists free slots of one day.
type FreeSlotsResponse = calendar.FreeSlots

// CalendarFile describes one ICS file.
type CalendarFile = storage.FileMeta

// TensionListResponse wraps a list of tensions.
type TensionListResponse struct {
	Tensions []Tension `json:"tensions" validate:"required"`
}

// TensionEventsResponse wraps the event log of a tension.
type TensionEventsResponse struct {
	Events []TensionEvent `json:"events" validate:"required"`
}

// CalendarFilesResponse wraps the ICS file listing.
type CalendarFilesResponse struct {
	Files []CalendarFile `json:"files" validate:"required"`
}

// PostponeRequest is the request body for postponing a tension.
type PostponeRequest struct {
	Minutes int `json:"minutes" example:"120" validate:"required"`
}

// UpdateTensionRequest is the request body for PATCH /tensions/{id}.
// return_at accepts an RFC 3339 timestamp, or null to clear it.
type UpdateTensionRequest struct {
	Charge   *int            `json:"charge,omitempty" example:"4"`
	Vector   *tension.Vector `json:"vector,omitempty" example:"decision"`
	Status   *tension.Status `json:"status,omitempty" example:"forming"`
	ReturnAt json.RawMessage `json:"return_at,omitempty" swaggertype:"string" example:"2026-02-09T15:00:00Z"`
}

func (req UpdateTensionRequest) input() (tensionservice.UpdateInput, error) {
	in := tensionservice.UpdateInput{
		Charge: req.Charge,
		Vector: req.Vector,
		Status: req.Status,
	}
	switch string(req.ReturnAt) {
	case "":
	case "null":
		in.ClearReturn = true
	default:
		var at time.Time
		if err := json.Unmarshal(req.ReturnAt, &at); err != nil {
			return in, fmt.Errorf("%w: return_at: must be an RFC 3339 timestamp or null", apperr.ErrInvalidInput)
		}
		in.ReturnAt = &at
	}
	return in, nil
}
