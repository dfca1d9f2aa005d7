package appstate

import "github.com/starford/folio/internal/models"

// ActionType names a state transition.
type ActionType string

const (
	LoadProjects   ActionType = "LOAD_PROJECTS"
	CreateProject  ActionType = "CREATE_PROJECT"
	SelectProject  ActionType = "SELECT_PROJECT"
	CreateDocument ActionType = "CREATE_DOCUMENT"
	UpdateDocument ActionType = "UPDATE_DOCUMENT"
	SelectDocument ActionType = "SELECT_DOCUMENT"
	DeleteDocument ActionType = "DELETE_DOCUMENT"
	UpdateProject  ActionType = "UPDATE_PROJECT"
)

// Action is a transition request. Which payload field is read depends on
// Type; use the constructors below.
type Action struct {
	Type       ActionType
	Projects   []models.Project
	Project    models.Project
	Document   models.Document
	DocumentID models.DocumentID
}

func Load(projects []models.Project) Action {
	return Action{Type: LoadProjects, Projects: projects}
}

func ProjectCreated(p models.Project) Action { return Action{Type: CreateProject, Project: p} }
func ProjectSelected(p models.Project) Action { return Action{Type: SelectProject, Project: p} }
func ProjectUpdated(p models.Project) Action { return Action{Type: UpdateProject, Project: p} }

func DocumentCreated(d models.Document) Action { return Action{Type: CreateDocument, Document: d} }
func DocumentUpdated(d models.Document) Action { return Action{Type: UpdateDocument, Document: d} }
func DocumentSelected(d models.Document) Action { return Action{Type: SelectDocument, Document: d} }

func DocumentDeleted(id models.DocumentID) Action {
	return Action{Type: DeleteDocument, DocumentID: id}
}

// Reduce applies a to s and returns the resulting state. It is pure: s is
// left untouched and unknown actions return s unchanged.
//
// SELECT_DOCUMENT changes two fields: the chapter becomes current and its
// owning project becomes the current project, so the selection never points
// outside the current project. A chapter that is not loaded is ignored, as
// are unknown IDs in SELECT_PROJECT, UPDATE_PROJECT and UPDATE_DOCUMENT.
func Reduce(s State, a Action) State {
	switch a.Type {
	case LoadProjects:
		return reduceLoad(s, a.Projects)

	case CreateProject:
		next := s.clone()
		next.putProject(a.Project)
		next.current = a.Project.ID
		next.currentDoc = ""
		return next

	case SelectProject:
		if _, ok := s.projects[a.Project.ID]; !ok {
			return s
		}
		next := s.clone()
		next.current = a.Project.ID
		next.currentDoc = ""
		return next

	case CreateDocument:
		if s.current == "" {
			return s
		}
		next := s.clone()
		d := a.Document
		if _, exists := next.docs[d.ID]; !exists {
			next.chapters[s.current] = append(next.chapters[s.current], d.ID)
			next.owner[d.ID] = s.current
		}
		next.docs[d.ID] = d
		next.bumpOwner(d)
		next.currentDoc = d.ID
		return next

	case UpdateDocument:
		if _, ok := s.docs[a.Document.ID]; !ok {
			return s
		}
		next := s.clone()
		next.docs[a.Document.ID] = a.Document
		next.bumpOwner(a.Document)
		next.currentDoc = a.Document.ID
		return next

	case SelectDocument:
		// Also moves current to the owner.
		owner, ok := s.owner[a.Document.ID]
		if !ok {
			return s
		}
		next := s.clone()
		next.current = owner
		next.currentDoc = a.Document.ID
		return next

	case DeleteDocument:
		next := s.clone()
		if owner, ok := next.owner[a.DocumentID]; ok {
			next.chapters[owner] = removeID(next.chapters[owner], a.DocumentID)
			delete(next.owner, a.DocumentID)
			delete(next.docs, a.DocumentID)
		}
		next.currentDoc = ""
		return next

	case UpdateProject:
		if _, ok := s.projects[a.Project.ID]; !ok {
			return s
		}
		next := s.clone()
		meta := a.Project
		meta.Documents = nil
		next.projects[meta.ID] = meta
		next.current = meta.ID
		if next.currentDoc != "" && next.owner[next.currentDoc] != meta.ID {
			next.currentDoc = ""
		}
		return next
	}
	return s
}

func reduceLoad(s State, projects []models.Project) State {
	next := Initial()
	next.loaded = true
	for _, p := range projects {
		next.putProject(p)
	}

	next.current = s.current
	if _, ok := next.projects[next.current]; !ok {
		next.current = ""
		if len(next.order) > 0 {
			next.current = next.order[0]
		}
	}

	next.currentDoc = s.currentDoc
	if owner, ok := next.owner[next.currentDoc]; !ok || owner != next.current {
		next.currentDoc = ""
	}
	return next
}

// putProject inserts or replaces p and its chapters. Callers own the maps.
func (s *State) putProject(p models.Project) {
	if _, exists := s.projects[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	for _, old := range s.chapters[p.ID] {
		delete(s.docs, old)
		delete(s.owner, old)
	}
	ids := make([]models.DocumentID, 0, len(p.Documents))
	for _, d := range p.Documents {
		ids = append(ids, d.ID)
		s.docs[d.ID] = d
		s.owner[d.ID] = p.ID
	}
	meta := p
	meta.Documents = nil
	s.projects[p.ID] = meta
	s.chapters[p.ID] = ids
}

// bumpOwner keeps the owning project's updatedAt no earlier than d's.
func (s *State) bumpOwner(d models.Document) {
	pid, ok := s.owner[d.ID]
	if !ok {
		return
	}
	meta := s.projects[pid]
	if d.UpdatedAt.After(meta.UpdatedAt) {
		meta.UpdatedAt = d.UpdatedAt
		s.projects[pid] = meta
	}
}

func removeID(ids []models.DocumentID, id models.DocumentID) []models.DocumentID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
