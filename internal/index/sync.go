package index

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
)

// Source supplies the authoritative project collection.
type Source interface {
	ListProjects(ctx context.Context) []models.Project
}

// Report counts the changes a sync applied.
type Report struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

// Changed reports whether the sync touched the index.
func (r Report) Changed() bool { return r.Indexed > 0 || r.Removed > 0 }

// Sync brings the index in line with the collection:
//   - new or changed chapters are analyzed and upserted
//   - chapters no longer in the collection are removed
func Sync(ctx context.Context, db *DB, src Source, logger *slog.Logger) (Report, error) {
	var rep Report
	indexed, err := db.Checksums(ctx)
	if err != nil {
		return rep, err
	}

	live := make(map[models.DocumentID]struct{})
	for _, p := range src.ListProjects(ctx) {
		for _, d := range p.Documents {
			live[d.ID] = struct{}{}
			sum := fingerprint(p, d)
			if indexed[d.ID] == sum {
				continue
			}
			if err := indexChapter(ctx, db, p, d, sum); err != nil {
				logger.Warn("sync: index failed", slog.String("document", string(d.ID)), slog.String("error", err.Error()))
				continue
			}
			rep.Indexed++
			logger.Debug("sync: indexed", slog.String("document", string(d.ID)))
		}
	}

	for id := range indexed {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteChapter(ctx, id); err != nil {
			logger.Warn("sync: delete failed", slog.String("document", string(id)), slog.String("error", err.Error()))
			continue
		}
		rep.Removed++
		logger.Debug("sync: removed stale", slog.String("document", string(id)))
	}
	return rep, nil
}

// fingerprint covers every field that ends up in the index row.
func fingerprint(p models.Project, d models.Document) string {
	return checksum.Sum([]byte(string(p.ID) + "\x00" + p.Name + "\x00" + d.Name + "\x00" + d.Content))
}

func indexChapter(ctx context.Context, db *DB, p models.Project, d models.Document, sum string) error {
	c := parser.Analyze(d.Content)
	row := ChapterRow{
		ID:          d.ID,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Name:        d.Name,
		Title:       c.Title,
		Tags:        c.Tags,
		Words:       c.Words,
		Checksum:    sum,
		UpdatedAt:   d.UpdatedAt,
	}
	return db.UpsertChapter(ctx, row, c.Body, c.Links)
}

// Syncer runs Sync in the background whenever it is triggered. Triggers
// that arrive while a sync is pending collapse into one run.
type Syncer struct {
	db     *DB
	src    Source
	logger *slog.Logger
	kick   chan struct{}

	mu     sync.Mutex
	onSync func(Report)
}

// NewSyncer creates a Syncer. Call Run to start it.
func NewSyncer(db *DB, src Source, logger *slog.Logger) *Syncer {
	return &Syncer{db: db, src: src, logger: logger, kick: make(chan struct{}, 1)}
}

// OnSync registers fn to be called after every sync that changed the index.
func (s *Syncer) OnSync(fn func(Report)) {
	s.mu.Lock()
	s.onSync = fn
	s.mu.Unlock()
}

// Trigger schedules a sync without blocking.
func (s *Syncer) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// SyncNow runs a sync on the caller's goroutine.
func (s *Syncer) SyncNow(ctx context.Context) (Report, error) {
	rep, err := Sync(ctx, s.db, s.src, s.logger)
	if err != nil {
		s.logger.Error("sync: failed", slog.String("error", err.Error()))
		return rep, err
	}
	if rep.Changed() {
		s.logger.Info("sync: index updated", slog.Int("indexed", rep.Indexed), slog.Int("removed", rep.Removed))
		s.mu.Lock()
		fn := s.onSync
		s.mu.Unlock()
		if fn != nil {
			fn(rep)
		}
	}
	return rep, nil
}

// Run processes triggers until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.kick:
			_, _ = s.SyncNow(ctx)
		}
	}
}
