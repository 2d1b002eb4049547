package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/helix/internal/calendar"
	"github.com/starford/helix/internal/calendar/google"
	"github.com/starford/helix/internal/calendar/ics"
	"github.com/starford/helix/internal/tensionservice"
)

// CalendarNotifier is told about calendar files changed through the API.
type CalendarNotifier interface {
	PublishCalendarChange(kind, name string)
}

// Services bundles the dependencies of the API. Files, OAuth, Notifier and
// Events are optional; routes backed by a nil dependency are not mounted.
type Services struct {
	Calendar *calendar.Service
	Tensions *tensionservice.Service
	Files    *ics.Source
	OAuth    *google.Client
	Notifier CalendarNotifier
	Events   http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc Services, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Google redirects the browser here without a bearer token; the
	// single-use state parameter protects the callback.
	if svc.OAuth != nil {
		r.Get("/oauth/google/start", h.OAuthStart)
		r.Get("/oauth/google/callback", h.OAuthCallback)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Get("/calendar/day", h.CalendarDay)
		r.Post("/calendar/free-slots", h.FreeSlots)
		r.Post("/calendar/events", h.CreateEvent)
		if svc.Files != nil {
			r.Get("/calendar/files", h.ListFiles)
			r.Put("/calendar/files/{name}", h.PutFile)
			r.Delete("/calendar/files/{name}", h.DeleteFile)
		}

		r.Post("/tensions", h.CaptureTension)
		r.Get("/tensions/active", h.ActiveTensions)
		r.Get("/tensions/search", h.SearchTensions)
		r.Get("/tensions/{id}", h.GetTension)
		r.Patch("/tensions/{id}", h.UpdateTension)
		r.Post("/tensions/{id}/postpone", h.PostponeTension)
		r.Get("/tensions/{id}/events", h.TensionEvents)

		r.Post("/return", h.Return)

		if svc.Events != nil {
			r.Get("/events", svc.Events.ServeHTTP)
		}
	})

	return r
}
