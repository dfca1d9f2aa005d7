package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/docref"
	"github.com/starford/folio/internal/models"
)

var errNoDocumentRef = apperr.Validation("document", "must be an id or an object with an id field")

// CreateDocument handles POST /documents.
//
//	@Summary	Append a chapter to the selected project and select it
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateDocumentRequest	false	"Base name, default Chapter"
//	@Success	201		{object}	DocumentResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if r.ContentLength != 0 && !h.decodeBody(w, r, &req) {
		return
	}
	d, err := h.app.CreateDocument(r.Context(), req.BaseName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	owner, _ := h.app.State().DocumentOwner(d.ID)
	h.writeJSON(w, http.StatusCreated, documentResponse(d, owner))
}

// GetDocument handles GET /documents/{id}. The ETag is the content checksum.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := models.DocumentID(chi.URLParam(r, "id"))
	loc, ok := h.docs.FindDocumentByID(r.Context(), id)
	if !ok {
		h.writeError(w, r, apperr.NotFound("document", id))
		return
	}
	w.Header().Set("ETag", strconv.Quote(checksum.Of(loc.Document.Content)))
	h.writeJSON(w, http.StatusOK, documentResponse(loc.Document, loc.Project.ID))
}

// SelectDocument handles POST /documents/select.
func (h *Handler) SelectDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id, ok := docref.Parse(req.Document)
	if !ok {
		h.writeError(w, r, errNoDocumentRef)
		return
	}
	d, err := h.app.SelectDocument(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	owner, _ := h.app.State().DocumentOwner(d.ID)
	h.writeJSON(w, http.StatusOK, documentResponse(d, owner))
}

// UpdateDocument handles PATCH /documents.
//
//	@Summary	Update a chapter's name and/or content
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		If-Match	header		string					false	"Content checksum for optimistic concurrency"
//	@Param		body		body		UpdateDocumentRequest	true	"Reference and fields"
//	@Success	200			{object}	DocumentResponse
//	@Failure	400			{object}	errResponse
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/documents [patch]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id, ok := docref.Parse(req.Document)
	if !ok {
		h.writeError(w, r, errNoDocumentRef)
		return
	}
	d, err := h.app.UpdateDocumentIfMatch(r.Context(), id, req.patch(), r.Header.Get("If-Match"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	owner, _ := h.app.State().DocumentOwner(d.ID)
	w.Header().Set("ETag", strconv.Quote(checksum.Of(d.Content)))
	h.writeJSON(w, http.StatusOK, documentResponse(d, owner))
}

// RenameDocument handles PUT /documents/name. Unlike PATCH it rejects an
// empty name.
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	var req RenameDocumentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id, ok := docref.Parse(req.Document)
	if !ok {
		h.writeError(w, r, errNoDocumentRef)
		return
	}
	d, err := h.app.UpdateDocumentName(r.Context(), id, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	owner, _ := h.app.State().DocumentOwner(d.ID)
	h.writeJSON(w, http.StatusOK, documentResponse(d, owner))
}

// DeleteDocument handles DELETE /documents. The chapter is removed from the
// selected project and the first remaining chapter becomes current.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id, ok := docref.Parse(req.Document)
	if !ok {
		h.writeError(w, r, errNoDocumentRef)
		return
	}
	if err := h.app.DeleteDocument(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.app.State().Snapshot())
}

// Backlinks handles GET /documents/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	id := models.DocumentID(chi.URLParam(r, "id"))
	if _, ok := h.docs.FindDocumentByID(r.Context(), id); !ok {
		h.writeError(w, r, apperr.NotFound("document", id))
		return
	}
	links, err := h.search.Backlinks(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: links})
}
