package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// CreateDocument appends a chapter to the project. Its name is baseName
// (default "Chapter") followed by the 1-based chapter number, which is
// derived from the current document count rather than a stored counter.
// Deleting a chapter and creating another can therefore repeat a name.
func (s *Store) CreateDocument(ctx context.Context, projectID models.ProjectID, baseName string) (models.Document, error) {
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = DefaultDocumentBase
	}

	var created models.Document
	err := s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		i := findProject(projects, projectID)
		if i < 0 {
			return nil, false, apperr.NotFound("project", projectID)
		}
		now := s.now()
		p := projects[i].Clone()
		d := models.Document{
			ID:        models.DocumentID(s.uniqueID(projects)),
			Name:      fmt.Sprintf("%s %d", baseName, len(p.Documents)+1),
			Content:   "",
			CreatedAt: now,
			UpdatedAt: now,
		}
		p.Documents = append(p.Documents, d)
		touch(&p, now)
		projects[i] = p
		created = d
		return projects, true, nil
	})
	if err != nil {
		return models.Document{}, err
	}
	return created, nil
}

// UpdateDocument merges patch over the document wherever it lives and
// refreshes updatedAt on both the document and its project.
func (s *Store) UpdateDocument(ctx context.Context, id models.DocumentID, patch models.DocumentPatch) (models.Document, error) {
	if id == "" {
		return models.Document{}, fmt.Errorf("docstore: %w: empty document id", apperr.ErrInvalidID)
	}
	if patch.IsEmpty() {
		return models.Document{}, apperr.Validation("updates", "no fields to update")
	}

	var updated models.Document
	err := s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		for i := range projects {
			j := projects[i].IndexOf(id)
			if j < 0 {
				continue
			}
			now := s.now()
			p := projects[i].Clone()
			d := p.Documents[j]
			patch.Name.Apply(&d.Name)
			patch.Content.Apply(&d.Content)
			d.UpdatedAt = now
			p.Documents[j] = d
			touch(&p, now)
			projects[i] = p
			updated = d
			return projects, true, nil
		}
		return nil, false, apperr.NotFound("document", id)
	})
	if err != nil {
		return models.Document{}, err
	}
	return updated, nil
}

// DeleteDocument removes a chapter from the project. Removing a chapter that
// is not there is a no-op, so repeated deletes leave the same collection.
func (s *Store) DeleteDocument(ctx context.Context, projectID models.ProjectID, id models.DocumentID) error {
	return s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		i := findProject(projects, projectID)
		if i < 0 {
			return nil, false, apperr.NotFound("project", projectID)
		}
		p := projects[i].Clone()
		kept := p.Documents[:0]
		for _, d := range p.Documents {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		if len(kept) == len(p.Documents) {
			return projects, false, nil
		}
		p.Documents = kept
		touch(&p, s.now())
		projects[i] = p
		return projects, true, nil
	})
}

// FindDocumentByID scans every project. A miss is reported through ok,
// not as an error.
func (s *Store) FindDocumentByID(ctx context.Context, id models.DocumentID) (loc models.Location, ok bool) {
	if id == "" {
		return models.Location{}, false
	}
	for _, p := range s.ListProjects(ctx) {
		if j := p.IndexOf(id); j >= 0 {
			return models.Location{Project: p, Document: p.Documents[j]}, true
		}
	}
	return models.Location{}, false
}

// GetDocument returns a chapter of a specific project.
func (s *Store) GetDocument(ctx context.Context, projectID models.ProjectID, id models.DocumentID) (models.Document, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Document{}, err
	}
	if j := p.IndexOf(id); j >= 0 {
		return p.Documents[j], nil
	}
	return models.Document{}, apperr.NotFound("document", id)
}

// ListDocuments returns the project's chapters in order, or an empty list
// when the project does not exist.
func (s *Store) ListDocuments(ctx context.Context, projectID models.ProjectID) []models.Document {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return []models.Document{}
	}
	return p.Documents
}
