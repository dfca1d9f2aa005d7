package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
)

// CreateProjectRequest is the request body for POST /projects.
type CreateProjectRequest struct {
	Name string `json:"name" example:"My Novel"`
}

func (r CreateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.RuneLength(0, docstore.MaxProjectNameLen)),
	)
}

// UpdateProjectRequest is the request body for PATCH /projects/current.
// Omitted fields are left unchanged.
type UpdateProjectRequest struct {
	Name  *string   `json:"name,omitempty"`
	Color *string   `json:"color,omitempty" example:"#5D3FD3"`
	Tags  *[]string `json:"tags,omitempty"`
}

func (r UpdateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.RuneLength(1, docstore.MaxProjectNameLen)),
		validation.Field(&r.Color, validation.NilOrNotEmpty, is.HexColor),
	)
}

func (r UpdateProjectRequest) patch() models.ProjectPatch {
	return models.ProjectPatch{Name: patchOf(r.Name), Color: patchOf(r.Color), Tags: patchOf(r.Tags)}
}

// CreateDocumentRequest is the request body for POST /documents.
type CreateDocumentRequest struct {
	BaseName string `json:"baseName" example:"Chapter"`
}

// DocumentRequest carries a document reference: either its ID as a string
// or an object holding it under id, _id, documentId or uuid.
type DocumentRequest struct {
	Document json.RawMessage `json:"document"`
}

// UpdateDocumentRequest is the request body for PATCH /documents.
type UpdateDocumentRequest struct {
	Document json.RawMessage `json:"document"`
	Name     *string         `json:"name,omitempty"`
	Content  *string         `json:"content,omitempty"`
}

func (r UpdateDocumentRequest) patch() models.DocumentPatch {
	return models.DocumentPatch{Name: patchOf(r.Name), Content: patchOf(r.Content)}
}

// RenameDocumentRequest is the request body for PUT /documents/name.
type RenameDocumentRequest struct {
	Document json.RawMessage `json:"document"`
	Name     string          `json:"name" example:"Prologue"`
}

// DocumentResponse is a document together with its content checksum, the
// value to send back in If-Match.
type DocumentResponse struct {
	models.Document
	ProjectID models.ProjectID `json:"projectId,omitempty"`
	Checksum  string           `json:"checksum"`
}

func documentResponse(d models.Document, projectID models.ProjectID) DocumentResponse {
	return DocumentResponse{Document: d, ProjectID: projectID, Checksum: checksum.Of(d.Content)}
}

// StateResponse is the full application state.
type StateResponse = appstate.Snapshot

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// BacklinksResponse lists chapters linking to a chapter.
type BacklinksResponse struct {
	Backlinks []index.ChapterRow `json:"backlinks"`
}

func patchOf[T any](v *T) models.Patch[T] {
	if v == nil {
		return models.Unset[T]()
	}
	return models.Set(*v)
}
