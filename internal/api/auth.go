package api

import (
	"net/http"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	url, err := h.gate.BeginLogin()
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{AuthURL: url})
}

// authCallback is the OAuth redirect target. It lives outside the token
// middleware because the browser arrives here straight from the provider.
func (h *Handler) authCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing state or code"))
		return
	}

	session, err := h.gate.CompleteLogin(r.Context(), state, code)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.gate.SignOut()
	writeJSON(w, http.StatusOK, h.gate.Session())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gate.Session())
}
