package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/state", h.State)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Patch("/current", h.UpdateCurrentProject)
		r.Delete("/{id}", h.DeleteProject)
		r.Post("/{id}/select", h.SelectProject)
		r.Post("/{id}/archive", h.ArchiveProject)
		r.Post("/{id}/restore", h.RestoreProject)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.CreateDocument)
		r.Patch("/", h.UpdateDocument)
		r.Delete("/", h.DeleteDocument)
		r.Post("/select", h.SelectDocument)
		r.Put("/name", h.RenameDocument)
		r.Get("/{id}", h.GetDocument)
		r.Get("/{id}/backlinks", h.Backlinks)
	})

	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
