// Package docstore persists the project collection as a single serialized
// blob in a storage.Provider and offers entity-level CRUD on top of
// whole-collection read-modify-write.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// DefaultKey is the storage key holding the serialized collection.
const DefaultKey = "folio-projects-v2"

// Defaults applied when callers omit a name.
const (
	DefaultProjectName  = "New Project"
	DefaultDocumentBase = "Chapter"
)

// Store owns the durable project collection.
type Store struct {
	provider storage.Provider
	key      string
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	// mu serializes read-modify-write cycles within the process.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger used for recovered serialization failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a Store over provider.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		key:      DefaultKey,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key holding the collection.
func (s *Store) Key() string { return s.key }

// ListProjects returns the whole collection. Missing or unreadable data
// yields an empty collection; the failure is logged, never returned.
func (s *Store) ListProjects(ctx context.Context) []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects, err := s.load(ctx)
	if err != nil {
		s.logger.Error("docstore: read failed", slog.String("key", s.key), slog.String("error", err.Error()))
		return []models.Project{}
	}
	return projects
}

// load reads and decodes the blob. A missing key or an undecodable blob is
// an empty collection; any other read failure is returned. Callers must
// hold mu.
func (s *Store) load(ctx context.Context) ([]models.Project, error) {
	data, err := s.provider.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return []models.Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read collection: %w", err)
	}
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		err = fmt.Errorf("%w: decode %s: %w", apperr.ErrSerialization, s.key, err)
		s.logger.Error("docstore: treating unreadable collection as empty", slog.String("error", err.Error()))
		return []models.Project{}, nil
	}
	for i := range projects {
		if projects[i].Documents == nil {
			projects[i].Documents = []models.Document{}
		}
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// save encodes and writes the whole collection. Callers must hold mu.
func (s *Store) save(ctx context.Context, projects []models.Project) error {
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("docstore: %w: encode: %w", apperr.ErrSerialization, err)
	}
	if err := s.provider.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("docstore: write collection: %w", err)
	}
	return nil
}

// mutate runs fn against a freshly loaded collection and persists the
// result when fn reports a change. Nothing is written when the collection
// cannot be read.
func (s *Store) mutate(ctx context.Context, fn func(projects []models.Project) ([]models.Project, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	projects, changed, err := fn(current)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(ctx, projects)
}

// uniqueID returns an identifier not used by any project or document.
func (s *Store) uniqueID(projects []models.Project) string {
	for {
		id := s.newID()
		if !idExists(projects, id) {
			return id
		}
	}
}

func idExists(projects []models.Project, id string) bool {
	for _, p := range projects {
		if string(p.ID) == id {
			return true
		}
		for _, d := range p.Documents {
			if string(d.ID) == id {
				return true
			}
		}
	}
	return false
}

func findProject(projects []models.Project, id models.ProjectID) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
