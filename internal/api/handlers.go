package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
)

// Searcher is the part of the search index the API reads.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
	Backlinks(ctx context.Context, id models.DocumentID) ([]index.ChapterRow, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// Handler holds API route handlers.
type Handler struct {
	app    *appstate.Store
	docs   *docstore.Store
	search Searcher
	logger *slog.Logger
}

// NewHandler creates a Handler. search may be nil, in which case the search
// routes answer 503. A nil logger means slog.Default().
func NewHandler(app *appstate.Store, docs *docstore.Store, search Searcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{app: app, docs: docs, search: search, logger: logger}
}

// State handles GET /state.
//
//	@Summary	Current projects, selection and loading flag
//	@Tags		state
//	@Produce	json
//	@Success	200	{object}	StateResponse
//	@Security	BearerAuth
//	@Router		/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.State().Snapshot())
}

// ListProjects handles GET /projects?name=&tag=&archived=.
//
//	@Summary	List projects, optionally filtered
//	@Tags		projects
//	@Produce	json
//	@Param		name		query		string	false	"Case-insensitive name substring"
//	@Param		tag			query		string	false	"Required tag (repeatable)"
//	@Param		archived	query		bool	false	"Archived flag"
//	@Success	200			{object}	ProjectListResponse
//	@Security	BearerAuth
//	@Router		/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := docstore.Criteria{Name: q.Get("name"), Tags: q["tag"]}
	if raw := q.Get("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorBody("archived must be true or false"))
			return
		}
		c.Archived = &v
	}
	h.writeJSON(w, http.StatusOK, ProjectListResponse{
		Projects: docstore.FilterProjects(h.app.State().Projects(), c),
	})
}

// CreateProject handles POST /projects.
//
//	@Summary	Create a project and select it
//	@Tags		projects
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateProjectRequest	true	"Project to create"
//	@Success	201		{object}	models.Project
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	p, err := h.app.CreateProject(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// SelectProject handles POST /projects/{id}/select.
func (h *Handler) SelectProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.SelectProject(r.Context(), models.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// UpdateCurrentProject handles PATCH /projects/current.
//
//	@Summary	Update the selected project
//	@Tags		projects
//	@Accept		json
//	@Produce	json
//	@Param		body	body		UpdateProjectRequest	true	"Fields to change"
//	@Success	200		{object}	models.Project
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/projects/current [patch]
func (h *Handler) UpdateCurrentProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	p, err := h.app.UpdateProject(r.Context(), req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /projects/{id}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteProject(r.Context(), models.ProjectID(chi.URLParam(r, "id"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveProject handles POST /projects/{id}/archive.
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.ArchiveProject(r.Context(), models.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// RestoreProject handles POST /projects/{id}/restore.
func (h *Handler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.RestoreProject(r.Context(), models.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// Search handles GET /search.
//
//	@Summary	Full-text search across chapters
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Warn("search failed", slog.String("query", q), slog.String("error", err.Error()))
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	s, err := h.search.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}
