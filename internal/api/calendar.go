package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/checksum"
	"github.com/starford/helix/internal/freeslots"
)

const maxCalendarBytes = 5 << 20 // 5 MB

// CalendarDay handles GET /api/calendar/day.
//
//	@Summary		Normalized events of one day
//	@Tags			calendar
//	@Produce		json
//	@Param			date	query		string	false	"Day, YYYY-MM-DD (default today)"
//	@Success		200		{object}	CalendarDay
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/day [get]
func (h *Handler) CalendarDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.calendar.Day(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, "calendar day", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// FreeSlots handles POST /api/calendar/free-slots.
//
//	@Summary		Find free slots on one day
//	@Tags			calendar
//	@Accept			json
//	@Produce		json
//	@Param			body	body		freeslots.Params	false	"Search parameters"
//	@Success		200		{object}	FreeSlotsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/free-slots [post]
func (h *Handler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	var params freeslots.Params
	if !decodeJSON(w, r, &params, true) {
		return
	}
	res, err := h.calendar.FreeSlots(r.Context(), params)
	if err != nil {
		writeError(w, "free slots", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateEvent handles POST /api/calendar/events.
//
//	@Summary		Create a timed event on the connected calendar
//	@Tags			calendar
//	@Accept			json
//	@Produce		json
//	@Param			body	body		calendar.CreateParams	true	"Event to create"
//	@Success		201		{object}	calendar.Event
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var params calendar.CreateParams
	if !decodeJSON(w, r, &params, false) {
		return
	}
	ev, err := h.calendar.CreateEvent(r.Context(), params)
	if err != nil {
		writeError(w, "create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// ListFiles handles GET /api/calendar/files.
func (h *Handler) ListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := h.files.Files()
	if err != nil {
		writeError(w, "list calendar files", err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarFilesResponse{Files: files})
}

// PutFile handles PUT /api/calendar/files/{name}. The body is the raw
// iCalendar content.
//
//	@Summary		Upload or replace an ICS file
//	@Tags			calendar
//	@Accept			plain
//	@Produce		json
//	@Param			name		path		string	true	"File name ending in .ics"
//	@Param			If-Match	header		string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		200			{object}	CalendarFile
//	@Success		201			{object}	CalendarFile
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/files/{name} [put]
func (h *Handler) PutFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCalendarBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	meta, created, err := h.files.Put(name, body, checksum.FromETag(r.Header.Get("If-Match")))
	if err != nil {
		writeError(w, "put calendar file", err)
		return
	}

	kind, status := "updated", http.StatusOK
	if created {
		kind, status = "created", http.StatusCreated
	}
	if h.notifier != nil {
		h.notifier.PublishCalendarChange(kind, name)
	}
	w.Header().Set("ETag", checksum.ETag(meta.Checksum))
	writeJSON(w, status, meta)
}

// DeleteFile handles DELETE /api/calendar/files/{name}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.files.Remove(name); err != nil {
		writeError(w, "delete calendar file", err)
		return
	}
	if h.notifier != nil {
		h.notifier.PublishCalendarChange("deleted", name)
	}
	w.WriteHeader(http.StatusNoContent)
}
