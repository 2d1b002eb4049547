package api

import (
	"net/http"
)

// OAuthStart handles GET /api/oauth/google/start by redirecting to the
// Google consent screen.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthURL(), http.StatusFound)
}

// OAuthCallback handles GET /api/oauth/google/callback.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeJSON(w, http.StatusBadRequest, errorBody("authorization denied: "+reason))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("code is required"))
		return
	}
	if err := h.oauth.Exchange(r.Context(), code, q.Get("state")); err != nil {
		writeError(w, "oauth exchange", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}
