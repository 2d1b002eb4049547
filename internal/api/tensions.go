package api

import (
	"net/http"

	"github.com/starford/helix/internal/tension"
	"github.com/starford/helix/internal/tensionservice"
)

// CaptureTension handles POST /api/tensions.
//
//	@Summary		Capture a new tension
//	@Tags			tensions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		tensionservice.CaptureInput	true	"Tension to capture"
//	@Success		201		{object}	Tension
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tensions [post]
func (h *Handler) CaptureTension(w http.ResponseWriter, r *http.Request) {
	var in tensionservice.CaptureInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	created, err := h.tensions.Capture(r.Context(), in, tension.ActorUser)
	if err != nil {
		writeError(w, "capture tension", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ActiveTensions handles GET /api/tensions/active.
//
//	@Summary		List held and forming tensions, newest first
//	@Tags			tensions
//	@Produce		json
//	@Param			limit	query		int	false	"Max results (default 50)"
//	@Success		200		{object}	TensionListResponse
//	@Security		BearerAuth
//	@Router			/tensions/active [get]
func (h *Handler) ActiveTensions(w http.ResponseWriter, r *http.Request) {
	ts, err := h.tensions.ListActive(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "list tensions", err)
		return
	}
	writeJSON(w, http.StatusOK, TensionListResponse{Tensions: ts})
}

// SearchTensions handles GET /api/tensions/search.
func (h *Handler) SearchTensions(w http.ResponseWriter, r *http.Request) {
	ts, err := h.tensions.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "search tensions", err)
		return
	}
	writeJSON(w, http.StatusOK, TensionListResponse{Tensions: ts})
}

// GetTension handles GET /api/tensions/{id}.
func (h *Handler) GetTension(w http.ResponseWriter, r *http.Request) {
	id, ok := tensionID(w, r)
	if !ok {
		return
	}
	t, err := h.tensions.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get tension", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTension handles PATCH /api/tensions/{id}.
//
//	@Summary		Change charge, vector, status or return time
//	@Tags			tensions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Tension id"
//	@Param			body	body		UpdateTensionRequest	true	"Fields to change"
//	@Success		200		{object}	Tension
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tensions/{id} [patch]
func (h *Handler) UpdateTension(w http.ResponseWriter, r *http.Request) {
	id, ok := tensionID(w, r)
	if !ok {
		return
	}
	var req UpdateTensionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, "update tension", err)
		return
	}
	updated, err := h.tensions.Update(r.Context(), id, in, tension.ActorUser)
	if err != nil {
		writeError(w, "update tension", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PostponeTension handles POST /api/tensions/{id}/postpone.
func (h *Handler) PostponeTension(w http.ResponseWriter, r *http.Request) {
	id, ok := tensionID(w, r)
	if !ok {
		return
	}
	var req PostponeRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	updated, err := h.tensions.Postpone(r.Context(), id, req.Minutes, tension.ActorUser)
	if err != nil {
		writeError(w, "postpone tension", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// TensionEvents handles GET /api/tensions/{id}/events.
func (h *Handler) TensionEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := tensionID(w, r)
	if !ok {
		return
	}
	evs, err := h.tensions.Events(r.Context(), id)
	if err != nil {
		writeError(w, "tension events", err)
		return
	}
	writeJSON(w, http.StatusOK, TensionEventsResponse{Events: evs})
}

// Return handles POST /api/return.
//
//	@Summary		Pick the next tension to resurface
//	@Description	Due tensions win over charge; the previous pick is not repeated when another candidate exists.
//	@Tags			tensions
//	@Produce		json
//	@Success		200	{object}	ReturnResponse
//	@Security		BearerAuth
//	@Router			/return [post]
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	res, err := h.tensions.Return(r.Context())
	if err != nil {
		writeError(w, "return tension", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
