package sse

import (
	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/models"
)

type projectData struct {
	ID       models.ProjectID `json:"id"`
	Name     string           `json:"name"`
	Archived bool             `json:"archived"`
}

type documentData struct {
	ID        models.DocumentID `json:"id"`
	ProjectID models.ProjectID  `json:"projectId,omitempty"`
	Name      string            `json:"name,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type selectionData struct {
	ProjectID  models.ProjectID  `json:"projectId,omitempty"`
	DocumentID models.DocumentID `json:"documentId,omitempty"`
}

type loadedData struct {
	Projects int `json:"projects"`
}

// EventFor maps a state transition to the event announcing it. Content is
// never included; clients fetch the document when they need it.
func EventFor(s appstate.State, a appstate.Action) (Event, bool) {
	switch a.Type {
	case appstate.LoadProjects:
		return Event{Type: TypeStateLoaded, Data: loadedData{Projects: len(a.Projects)}}, true
	case appstate.CreateProject:
		return Event{Type: TypeProjectCreated, Data: projectOf(a.Project)}, true
	case appstate.UpdateProject:
		return Event{Type: TypeProjectUpdated, Data: projectOf(a.Project)}, true
	case appstate.SelectProject, appstate.SelectDocument:
		return Event{Type: TypeSelectionChanged, Data: selectionOf(s)}, true
	case appstate.CreateDocument:
		return Event{Type: TypeDocumentCreated, Data: documentOf(s, a.Document)}, true
	case appstate.UpdateDocument:
		return Event{Type: TypeDocumentUpdated, Data: documentOf(s, a.Document)}, true
	case appstate.DeleteDocument:
		return Event{Type: TypeDocumentDeleted, Data: documentData{ID: a.DocumentID}}, true
	}
	return Event{}, false
}

// Observe publishes the event for every transition. It has the shape of an
// appstate.Listener.
func (b *Broker) Observe(s appstate.State, a appstate.Action) {
	if ev, ok := EventFor(s, a); ok {
		b.Publish(ev)
	}
}

func projectOf(p models.Project) projectData {
	return projectData{ID: p.ID, Name: p.Name, Archived: p.Archived}
}

func documentOf(s appstate.State, d models.Document) documentData {
	owner, _ := s.DocumentOwner(d.ID)
	return documentData{
		ID:        d.ID,
		ProjectID: owner,
		Name:      d.Name,
		UpdatedAt: d.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func selectionOf(s appstate.State) selectionData {
	var out selectionData
	if p, ok := s.CurrentProject(); ok {
		out.ProjectID = p.ID
	}
	if d, ok := s.CurrentDocument(); ok {
		out.DocumentID = d.ID
	}
	return out
}
