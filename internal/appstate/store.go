package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/models"
)

// Listener observes every dispatched action together with the state it
// produced. Listeners must not call Dispatch.
type Listener func(State, Action)

// Store is the observable container around State. Composite operations are
// serialized; listeners run after the state lock is released, in dispatch
// order.
type Store struct {
	docs   *docstore.Store
	logger *slog.Logger

	ops sync.Mutex // serializes composite operations

	dispatchMu sync.Mutex // orders reduce + notify
	stateMu    sync.RWMutex
	state      State

	subsMu    sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New creates a container in the initial loading state.
func New(docs *docstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:      docs,
		logger:    logger,
		state:     Initial(),
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Dispatch reduces a into the current state and notifies listeners.
func (s *Store) Dispatch(a Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.stateMu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	s.stateMu.Unlock()

	s.subsMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.subsMu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		s.subsMu.Lock()
		fn, ok := s.listeners[id]
		s.subsMu.Unlock()
		if ok {
			fn(next, a)
		}
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.listeners, id)
			s.subsMu.Unlock()
		})
	}
}

// fail logs a failed composite and returns err unchanged.
func (s *Store) fail(op string, err error, attrs ...any) error {
	args := append([]any{slog.String("op", op), slog.String("error", err.Error())}, attrs...)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrInvalidID) || errors.Is(err, apperr.ErrNoProjectSelected) ||
		errors.Is(err, apperr.ErrConflict) {
		s.logger.Warn("appstate: operation rejected", args...)
	} else {
		s.logger.Error("appstate: operation failed", args...)
	}
	return err
}

// normalize resolves a reference to a non-empty document ID.
func normalize(ref models.DocumentRef) (models.DocumentID, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: document reference is required", apperr.ErrInvalidID)
	}
	id := ref.DocumentRefID()
	if id == "" {
		return "", fmt.Errorf("%w: document reference has no id", apperr.ErrInvalidID)
	}
	return id, nil
}

// reload relists the collection and dispatches LOAD_PROJECTS.
func (s *Store) reload(ctx context.Context) []models.Project {
	projects := s.docs.ListProjects(ctx)
	s.Dispatch(Load(projects))
	return projects
}
