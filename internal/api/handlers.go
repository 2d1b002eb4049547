package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/calendar/google"
	"github.com/starford/helix/internal/calendar/ics"
	"github.com/starford/helix/internal/tensionservice"
)

// Handler holds API route handlers.
type Handler struct {
	calendar *calendar.Service
	tensions *tensionservice.Service
	files    *ics.Source
	oauth    *google.Client
	notifier CalendarNotifier
}

// NewHandler creates a new Handler.
func NewHandler(svc Services) *Handler {
	return &Handler{
		calendar: svc.Calendar,
		tensions: svc.Tensions,
		files:    svc.Files,
		oauth:    svc.OAuth,
		notifier: svc.Notifier,
	}
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

// tensionID parses the {id} URL parameter; it writes a 400 and returns false
// when it is not a positive integer.
func tensionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
