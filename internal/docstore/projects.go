package docstore

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// MaxProjectNameLen bounds project display names.
const MaxProjectNameLen = 50

// Palette is the set of colors assigned to new projects.
var Palette = []string{
	"#5D3FD3", // iris
	"#6F8FAF", // air force blue
	"#C3B1E1", // lavender gray
	"#A7C7E7", // serenity
	"#B0FC38", // lime
}

func validateProject(p *models.Project) error {
	return apperr.WrapValidation(validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.RuneLength(1, MaxProjectNameLen)),
	))
}

// CreateProject appends a new empty project. An empty name falls back to
// DefaultProjectName.
func (s *Store) CreateProject(ctx context.Context, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProjectName
	}

	var created models.Project
	err := s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		now := s.now()
		p := models.Project{
			ID:        models.ProjectID(s.uniqueID(projects)),
			Name:      name,
			Color:     Palette[rand.IntN(len(Palette))],
			CreatedAt: now,
			UpdatedAt: now,
			Documents: []models.Document{},
		}
		if err := validateProject(&p); err != nil {
			return nil, false, err
		}
		created = p
		return append(projects, p), true, nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return created.Clone(), nil
}

// GetProject returns a single project.
func (s *Store) GetProject(ctx context.Context, id models.ProjectID) (models.Project, error) {
	projects := s.ListProjects(ctx)
	if i := findProject(projects, id); i >= 0 {
		return projects[i], nil
	}
	return models.Project{}, apperr.NotFound("project", id)
}

// UpdateProject merges patch over the project and refreshes updatedAt.
func (s *Store) UpdateProject(ctx context.Context, id models.ProjectID, patch models.ProjectPatch) (models.Project, error) {
	if patch.IsEmpty() {
		return models.Project{}, apperr.Validation("updates", "no fields to update")
	}
	var updated models.Project
	err := s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		i := findProject(projects, id)
		if i < 0 {
			return nil, false, apperr.NotFound("project", id)
		}
		p := projects[i].Clone()
		if patch.Name.IsSet {
			p.Name = strings.TrimSpace(patch.Name.Value)
		}
		patch.Color.Apply(&p.Color)
		patch.Tags.Apply(&p.Tags)
		if err := validateProject(&p); err != nil {
			return nil, false, err
		}
		touch(&p, s.now())
		projects[i] = p
		updated = p
		return projects, true, nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return updated.Clone(), nil
}

// DeleteProject removes a project together with all of its documents.
func (s *Store) DeleteProject(ctx context.Context, id models.ProjectID) error {
	return s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		i := findProject(projects, id)
		if i < 0 {
			return nil, false, apperr.NotFound("project", id)
		}
		return append(projects[:i], projects[i+1:]...), true, nil
	})
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
	var out models.Project
	err := s.mutate(ctx, func(projects []models.Project) ([]models.Project, bool, error) {
		i := findProject(projects, id)
		if i < 0 {
			return nil, false, apperr.NotFound("project", id)
		}
		now := s.now()
		p := projects[i].Clone()
		p.Archived = archived
		p.ArchivedAt = nil
		if archived {
			p.ArchivedAt = &now
		}
		touch(&p, now)
		projects[i] = p
		out = p
		return projects, true, nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return out.Clone(), nil
}

// Criteria filters a project list. Zero fields match everything.
type Criteria struct {
	Name     string
	Tags     []string
	Archived *bool
}

// FilterProjects returns the projects matching every set criterion.
func FilterProjects(projects []models.Project, c Criteria) []models.Project {
	out := []models.Project{}
	name := strings.ToLower(c.Name)
	for _, p := range projects {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if !hasAllTags(p.Tags, c.Tags) {
			continue
		}
		if c.Archived != nil && p.Archived != *c.Archived {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// touch is the single place project and document timestamps advance
// together, keeping project.updatedAt >= document.updatedAt.
func touch(p *models.Project, now time.Time) {
	if now.Before(p.UpdatedAt) {
		return
	}
	p.UpdatedAt = now
}
