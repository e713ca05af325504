package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/keepsake/internal/gate"
	"github.com/mkarlsen/keepsake/internal/journal"
	"github.com/mkarlsen/keepsake/internal/store"
)

// NewRouter assembles the /api route tree. sseHandler may be nil, in which
// case /events is not mounted. The OAuth callback stays outside the token
// middleware; everything else is guarded when auth is enabled.
func NewRouter(svc *journal.Service, g *gate.Gate, st store.RecordStore, authEnabled bool, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(svc, g, st, logger)

	r := chi.NewRouter()
	r.Get("/auth/callback", h.authCallback)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", h.listMemories)
			r.Post("/", h.createMemory)
			r.Post("/suggest", h.suggestCaption)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getMemory)
				r.Put("/", h.updateMemory)
				r.Delete("/", h.deleteMemory)
				r.Get("/images/{imageID}", h.serveImage)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/profile", h.getProfile)
			r.Put("/profile", h.putProfile)
			r.Get("/remote", h.getRemoteSettings)
			r.Put("/remote", h.putRemoteSettings)
		})

		// Plain method routes here: mounting a subrouter at /auth would
		// collide with the callback registered above.
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)
		r.Get("/auth/session", h.session)

		if sseHandler != nil {
			r.Handle("/events", sseHandler)
		}
	})

	return r
}
