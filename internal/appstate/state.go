// Package appstate holds the in-memory application state: the loaded
// projects, the current selection and the operations that keep them in step
// with the persisted collection.
package appstate

import "github.com/starford/folio/internal/models"

// State is an immutable snapshot. Transitions return a new State and never
// modify the maps of an existing one.
//
// Each document is stored once in docs; projects reference their chapters
// by ID through chapters, so every view of a document reads the same copy.
type State struct {
	order    []models.ProjectID
	projects map[models.ProjectID]models.Project // Documents always nil
	chapters map[models.ProjectID][]models.DocumentID
	docs     map[models.DocumentID]models.Document
	owner    map[models.DocumentID]models.ProjectID

	current    models.ProjectID
	currentDoc models.DocumentID
	loaded     bool
}

// Initial returns the empty state a process starts with: nothing loaded and
// isLoading set.
func Initial() State {
	return State{
		projects: map[models.ProjectID]models.Project{},
		chapters: map[models.ProjectID][]models.DocumentID{},
		docs:     map[models.DocumentID]models.Document{},
		owner:    map[models.DocumentID]models.ProjectID{},
	}
}

func (s State) clone() State {
	out := State{
		order:      append([]models.ProjectID(nil), s.order...),
		projects:   make(map[models.ProjectID]models.Project, len(s.projects)),
		chapters:   make(map[models.ProjectID][]models.DocumentID, len(s.chapters)),
		docs:       make(map[models.DocumentID]models.Document, len(s.docs)),
		owner:      make(map[models.DocumentID]models.ProjectID, len(s.owner)),
		current:    s.current,
		currentDoc: s.currentDoc,
		loaded:     s.loaded,
	}
	for k, v := range s.projects {
		out.projects[k] = v
	}
	for k, v := range s.chapters {
		out.chapters[k] = append([]models.DocumentID(nil), v...)
	}
	for k, v := range s.docs {
		out.docs[k] = v
	}
	for k, v := range s.owner {
		out.owner[k] = v
	}
	return out
}

// IsLoading reports whether the initial load has not completed yet.
func (s State) IsLoading() bool { return !s.loaded }

// Project assembles a project together with its chapters.
func (s State) Project(id models.ProjectID) (models.Project, bool) {
	meta, ok := s.projects[id]
	if !ok {
		return models.Project{}, false
	}
	p := meta
	p.Tags = append([]string(nil), meta.Tags...)
	ids := s.chapters[id]
	p.Documents = make([]models.Document, 0, len(ids))
	for _, did := range ids {
		p.Documents = append(p.Documents, s.docs[did])
	}
	return p, true
}

// Projects returns every project in load order.
func (s State) Projects() []models.Project {
	out := make([]models.Project, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.Project(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// Document looks up a chapter by ID in any project.
func (s State) Document(id models.DocumentID) (models.Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// DocumentOwner returns the project holding the chapter.
func (s State) DocumentOwner(id models.DocumentID) (models.ProjectID, bool) {
	p, ok := s.owner[id]
	return p, ok
}

// CurrentProject returns the selected project.
func (s State) CurrentProject() (models.Project, bool) {
	if s.current == "" {
		return models.Project{}, false
	}
	return s.Project(s.current)
}

// CurrentDocument returns the selected chapter.
func (s State) CurrentDocument() (models.Document, bool) {
	if s.currentDoc == "" {
		return models.Document{}, false
	}
	return s.Document(s.currentDoc)
}

// Documents returns the chapters of the current project, or an empty list.
func (s State) Documents() []models.Document {
	p, ok := s.CurrentProject()
	if !ok {
		return []models.Document{}
	}
	return p.Documents
}

// Snapshot is the serializable form of a State.
type Snapshot struct {
	Projects        []models.Project  `json:"projects"`
	CurrentProject  *models.Project   `json:"currentProject"`
	CurrentDocument *models.Document  `json:"currentDocument"`
	Documents       []models.Document `json:"documents"`
	IsLoading       bool              `json:"isLoading"`
}

// Snapshot renders every view of s.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		Projects:  s.Projects(),
		Documents: s.Documents(),
		IsLoading: s.IsLoading(),
	}
	if p, ok := s.CurrentProject(); ok {
		snap.CurrentProject = &p
	}
	if d, ok := s.CurrentDocument(); ok {
		snap.CurrentDocument = &d
	}
	return snap
}
