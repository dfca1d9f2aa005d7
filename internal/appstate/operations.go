package appstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
)

// Bootstrap loads the persisted collection and guarantees the first project
// has at least one chapter selected. It runs once per process start.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	projects := s.docs.ListProjects(ctx)
	if len(projects) == 0 {
		p, err := s.docs.CreateProject(ctx, "")
		if err != nil {
			return s.fail("bootstrap", err)
		}
		d, err := s.docs.CreateDocument(ctx, p.ID, "")
		if err != nil {
			return s.fail("bootstrap", err)
		}
		s.reload(ctx)
		s.Dispatch(DocumentSelected(d))
		s.logger.Info("appstate: created initial project", slog.String("project", string(p.ID)))
		return nil
	}

	first := projects[0]
	if len(first.Documents) == 0 {
		d, err := s.docs.CreateDocument(ctx, first.ID, "")
		if err != nil {
			return s.fail("bootstrap", err)
		}
		s.reload(ctx)
		s.Dispatch(DocumentSelected(d))
		return nil
	}

	s.Dispatch(Load(projects))
	s.Dispatch(DocumentSelected(first.Documents[0]))
	return nil
}

// Reload replaces the loaded projects with the persisted collection. The
// selection survives when it still exists.
func (s *Store) Reload(ctx context.Context) State {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.reload(ctx)
	return s.State()
}

// Refresh reloads only when the persisted collection differs from the
// loaded one, and reports whether it did. The change watcher calls it for
// every write to the backing file, including the process's own.
func (s *Store) Refresh(ctx context.Context) bool {
	s.ops.Lock()
	defer s.ops.Unlock()

	projects := s.docs.ListProjects(ctx)
	if sameCollection(projects, s.State().Projects()) {
		return false
	}
	s.Dispatch(Load(projects))
	s.logger.Info("appstate: reloaded external change", slog.Int("projects", len(projects)))
	return true
}

func sameCollection(a, b []models.Project) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Documents) != len(b[i].Documents) {
			return false
		}
		ja, errA := json.Marshal(withoutDocuments(a[i]))
		jb, errB := json.Marshal(withoutDocuments(b[i]))
		if errA != nil || errB != nil || !bytes.Equal(ja, jb) {
			return false
		}
		for j := range a[i].Documents {
			if !a[i].Documents[j].Equal(b[i].Documents[j]) {
				return false
			}
		}
	}
	return true
}

func withoutDocuments(p models.Project) models.Project {
	p.Documents = nil
	return p
}

// CreateProject persists a new project and selects it.
func (s *Store) CreateProject(ctx context.Context, name string) (models.Project, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	p, err := s.docs.CreateProject(ctx, name)
	if err != nil {
		return models.Project{}, s.fail("create project", err)
	}
	s.Dispatch(ProjectCreated(p))
	return p, nil
}

// SelectProject makes a loaded project current and clears the chapter
// selection.
func (s *Store) SelectProject(ctx context.Context, id models.ProjectID) (models.Project, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	p, ok := s.State().Project(id)
	if !ok {
		return models.Project{}, s.fail("select project", apperr.NotFound("project", id))
	}
	s.Dispatch(ProjectSelected(p))
	return p, nil
}

// UpdateProject applies patch to the current project.
func (s *Store) UpdateProject(ctx context.Context, patch models.ProjectPatch) (models.Project, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	cur, ok := s.State().CurrentProject()
	if !ok {
		return models.Project{}, s.fail("update project", apperr.ErrNoProjectSelected)
	}
	p, err := s.docs.UpdateProject(ctx, cur.ID, patch)
	if err != nil {
		return models.Project{}, s.fail("update project", err, slog.String("project", string(cur.ID)))
	}
	s.Dispatch(ProjectUpdated(p))
	return p, nil
}

// DeleteProject removes a project and its chapters, then reloads.
func (s *Store) DeleteProject(ctx context.Context, id models.ProjectID) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.docs.DeleteProject(ctx, id); err != nil {
		return s.fail("delete project", err, slog.String("project", string(id)))
	}
	s.reload(ctx)
	return nil
}

// ArchiveProject flags a project as archived.
func (s *Store) ArchiveProject(ctx context.Context, id models.ProjectID) (models.Project, error) {
	return s.setArchived(ctx, id, true)
}

// RestoreProject clears the archived flag.
func (s *Store) RestoreProject(ctx context.Context, id models.ProjectID) (models.Project, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Store) setArchived(ctx context.Context, id models.ProjectID, archived bool) (models.Project, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	op := "restore project"
	fn := s.docs.RestoreProject
	if archived {
		op = "archive project"
		fn = s.docs.ArchiveProject
	}
	p, err := fn(ctx, id)
	if err != nil {
		return models.Project{}, s.fail(op, err, slog.String("project", string(id)))
	}
	// UPDATE_PROJECT also selects; keep the selection where it was.
	s.reload(ctx)
	return p, nil
}

// CreateDocument appends a chapter to the current project and selects it.
func (s *Store) CreateDocument(ctx context.Context, baseName string) (models.Document, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	cur, ok := s.State().CurrentProject()
	if !ok {
		return models.Document{}, s.fail("create document", apperr.ErrNoProjectSelected)
	}
	d, err := s.docs.CreateDocument(ctx, cur.ID, baseName)
	if err != nil {
		return models.Document{}, s.fail("create document", err, slog.String("project", string(cur.ID)))
	}
	s.Dispatch(DocumentCreated(d))
	s.Dispatch(DocumentSelected(d))
	return d, nil
}

// UpdateDocument applies patch to the referenced chapter and selects it.
func (s *Store) UpdateDocument(ctx context.Context, ref models.DocumentRef, patch models.DocumentPatch) (models.Document, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	id, err := normalize(ref)
	if err != nil {
		return models.Document{}, s.fail("update document", err)
	}
	if patch.IsEmpty() {
		return models.Document{}, s.fail("update document", apperr.Validation("updates", "no fields to update"))
	}
	return s.applyDocumentPatch(ctx, "update document", id, patch)
}

// UpdateDocumentIfMatch is UpdateDocument guarded by a content checksum:
// when tag is non-empty and does not match the stored content, nothing is
// written and ErrConflict is returned.
func (s *Store) UpdateDocumentIfMatch(ctx context.Context, ref models.DocumentRef, patch models.DocumentPatch, tag string) (models.Document, error) {
	if tag == "" {
		return s.UpdateDocument(ctx, ref, patch)
	}

	s.ops.Lock()
	defer s.ops.Unlock()

	id, err := normalize(ref)
	if err != nil {
		return models.Document{}, s.fail("update document", err)
	}
	if patch.IsEmpty() {
		return models.Document{}, s.fail("update document", apperr.Validation("updates", "no fields to update"))
	}
	loc, ok := s.docs.FindDocumentByID(ctx, id)
	if !ok {
		return models.Document{}, s.fail("update document", apperr.NotFound("document", id))
	}
	if !checksum.Matches(tag, loc.Document.Content) {
		return models.Document{}, s.fail("update document",
			fmt.Errorf("%w: document %s changed since it was read", apperr.ErrConflict, id))
	}
	return s.applyDocumentPatch(ctx, "update document", id, patch)
}

// UpdateDocumentName renames the referenced chapter. Unlike UpdateDocument
// it rejects an empty name and checks the chapter exists before writing.
func (s *Store) UpdateDocumentName(ctx context.Context, ref models.DocumentRef, newName string) (models.Document, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	id, err := normalize(ref)
	if err != nil {
		return models.Document{}, s.fail("rename document", err)
	}
	if strings.TrimSpace(newName) == "" {
		return models.Document{}, s.fail("rename document", apperr.Validation("name", "new name is required"))
	}
	if _, ok := s.docs.FindDocumentByID(ctx, id); !ok {
		return models.Document{}, s.fail("rename document", apperr.NotFound("document", id))
	}
	return s.applyDocumentPatch(ctx, "rename document", id, models.DocumentPatch{Name: models.Set(newName)})
}

func (s *Store) applyDocumentPatch(ctx context.Context, op string, id models.DocumentID, patch models.DocumentPatch) (models.Document, error) {
	d, err := s.docs.UpdateDocument(ctx, id, patch)
	if err != nil {
		return models.Document{}, s.fail(op, err, slog.String("document", string(id)))
	}
	if _, known := s.State().Document(id); !known {
		// Written by another process since the last load.
		s.reload(ctx)
	}
	s.Dispatch(DocumentUpdated(d))
	return d, nil
}

// SelectDocument makes a loaded chapter current.
func (s *Store) SelectDocument(ctx context.Context, ref models.DocumentRef) (models.Document, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	id, err := normalize(ref)
	if err != nil {
		return models.Document{}, s.fail("select document", err)
	}
	d, ok := s.State().Document(id)
	if !ok {
		return models.Document{}, s.fail("select document", apperr.NotFound("document", id))
	}
	s.Dispatch(DocumentSelected(d))
	return d, nil
}

// DeleteDocument removes the referenced chapter from the current project.
// Afterwards the first remaining chapter is selected, or none.
func (s *Store) DeleteDocument(ctx context.Context, ref models.DocumentRef) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	id, err := normalize(ref)
	if err != nil {
		return s.fail("delete document", err)
	}
	cur, ok := s.State().CurrentProject()
	if !ok {
		return s.fail("delete document", apperr.ErrNoProjectSelected)
	}
	loc, found := s.docs.FindDocumentByID(ctx, id)
	if err := s.docs.DeleteDocument(ctx, cur.ID, id); err != nil {
		return s.fail("delete document", err, slog.String("document", string(id)))
	}

	// Chapters of other projects are left alone and announce nothing.
	if found && loc.Project.ID == cur.ID {
		s.Dispatch(DocumentDeleted(id))
	}
	s.reload(ctx)
	if p, ok := s.State().Project(cur.ID); ok && len(p.Documents) > 0 {
		s.Dispatch(DocumentSelected(p.Documents[0]))
	}
	return nil
}

// Current returns the current project and chapter, failing when nothing is
// selected.
func (s *Store) Current() (models.Project, models.Document, error) {
	st := s.State()
	p, ok := st.CurrentProject()
	if !ok {
		return models.Project{}, models.Document{}, apperr.ErrNoProjectSelected
	}
	d, ok := st.CurrentDocument()
	if !ok {
		return p, models.Document{}, fmt.Errorf("%w: no document selected", apperr.ErrNotFound)
	}
	return p, d, nil
}
