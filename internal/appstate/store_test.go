package appstate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *docstore.Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	docs := docstore.New(mem, docstore.WithLogger(logger))
	return New(docs, logger), docs, mem
}

func TestBootstrap_EmptyStore(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()

	if err := app.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	persisted := docs.ListProjects(ctx)
	if len(persisted) != 1 || len(persisted[0].Documents) != 1 {
		t.Fatalf("persisted = %+v", persisted)
	}
	if persisted[0].Name != docstore.DefaultProjectName {
		t.Errorf("project name = %q", persisted[0].Name)
	}
	if got := persisted[0].Documents[0].Name; got != "Chapter 1" {
		t.Errorf("document name = %q, want %q", got, "Chapter 1")
	}

	st := app.State()
	if st.IsLoading() {
		t.Error("bootstrap should finish loading")
	}
	d, ok := st.CurrentDocument()
	if !ok || d.ID != persisted[0].Documents[0].ID {
		t.Errorf("current document = %+v, %v", d, ok)
	}
}

func TestBootstrap_FirstProjectEmpty(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	p, _ := docs.CreateProject(ctx, "Novel")

	if err := app.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	got, _ := docs.GetProject(ctx, p.ID)
	if len(got.Documents) != 1 || got.Documents[0].Name != "Chapter 1" {
		t.Errorf("documents = %+v", got.Documents)
	}
	if d, ok := app.State().CurrentDocument(); !ok || d.ID != got.Documents[0].ID {
		t.Error("default chapter should be selected")
	}
}

func TestBootstrap_ExistingSelectsFirstDocument(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	p, _ := docs.CreateProject(ctx, "Novel")
	d1, _ := docs.CreateDocument(ctx, p.ID, "")
	_, _ = docs.CreateDocument(ctx, p.ID, "")

	if err := app.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if d, _ := app.State().CurrentDocument(); d.ID != d1.ID {
		t.Errorf("current document = %s, want %s", d.ID, d1.ID)
	}
	if n := len(docs.ListDocuments(ctx, p.ID)); n != 2 {
		t.Errorf("bootstrap must not create chapters here, have %d", n)
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	_ = app.Bootstrap(ctx)
	if n := len(docs.ListProjects(ctx)); n != 1 {
		t.Errorf("projects = %d, want 1", n)
	}
}

func TestUpdateDocumentName_UnknownIDLeavesStoreUnchanged(t *testing.T) {
	app, docs, mem := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)

	before, _ := mem.Get(ctx, docs.Key())
	stateBefore := app.State()

	_, err := app.UpdateDocumentName(ctx, models.DocumentID("bad-id"), "X")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	after, _ := mem.Get(ctx, docs.Key())
	if !bytes.Equal(before, after) {
		t.Error("durable store changed")
	}
	if cur, _ := app.State().CurrentDocument(); cur != mustCurrent(t, stateBefore) {
		t.Error("state changed")
	}
}

func mustCurrent(t *testing.T, s State) models.Document {
	t.Helper()
	d, ok := s.CurrentDocument()
	if !ok {
		t.Fatal("expected a current document")
	}
	return d
}

func TestUpdateDocumentName_RejectsEmptyName(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	d := mustCurrent(t, app.State())

	if _, err := app.UpdateDocumentName(ctx, d, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateDocumentName_AcceptsDocumentValue(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	d := mustCurrent(t, app.State())

	renamed, err := app.UpdateDocumentName(ctx, d, "Prologue")
	if err != nil {
		t.Fatalf("UpdateDocumentName: %v", err)
	}
	if renamed.Name != "Prologue" {
		t.Errorf("name = %q", renamed.Name)
	}
	loc, _ := docs.FindDocumentByID(ctx, d.ID)
	if loc.Document.Name != "Prologue" {
		t.Errorf("persisted name = %q", loc.Document.Name)
	}
	if got := app.State().Documents()[0].Name; got != "Prologue" {
		t.Errorf("documents view = %q", got)
	}
}

func TestUpdateDocument(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	d := mustCurrent(t, app.State())

	got, err := app.UpdateDocument(ctx, d.ID, models.DocumentPatch{Content: models.Set("Once upon a time")})
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	st := app.State()
	p, _ := st.CurrentProject()
	if p.Documents[0].Content != "Once upon a time" {
		t.Error("project view is stale")
	}
	if p.UpdatedAt.Before(got.UpdatedAt) {
		t.Error("project updatedAt earlier than document")
	}

	if _, err := app.UpdateDocument(ctx, nil, models.DocumentPatch{Content: models.Set("x")}); !errors.Is(err, apperr.ErrInvalidID) {
		t.Errorf("nil ref err = %v", err)
	}
	if _, err := app.UpdateDocument(ctx, models.DocumentID(""), models.DocumentPatch{Content: models.Set("x")}); !errors.Is(err, apperr.ErrInvalidID) {
		t.Errorf("empty ref err = %v", err)
	}
	if _, err := app.UpdateDocument(ctx, d.ID, models.DocumentPatch{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty patch err = %v", err)
	}
}

func TestUpdateDocument_PicksUpExternalWrites(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	p, _ := app.State().CurrentProject()

	// Created behind the container's back.
	d, _ := docs.CreateDocument(ctx, p.ID, "")
	if _, err := app.UpdateDocument(ctx, d.ID, models.DocumentPatch{Content: models.Set("x")}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if got, ok := app.State().Document(d.ID); !ok || got.Content != "x" {
		t.Errorf("document = %+v, %v", got, ok)
	}
}

func TestCreateDocument_RequiresProject(t *testing.T) {
	app, _, _ := newTestStore(t)
	if _, err := app.CreateDocument(context.Background(), ""); !errors.Is(err, apperr.ErrNoProjectSelected) {
		t.Errorf("err = %v, want ErrNoProjectSelected", err)
	}
}

func TestCreateDocument_SelectsNewChapter(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)

	d, err := app.CreateDocument(ctx, "")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if d.Name != "Chapter 2" {
		t.Errorf("name = %q", d.Name)
	}
	if cur := mustCurrent(t, app.State()); cur.ID != d.ID {
		t.Error("new chapter should be selected")
	}
}

func TestDeleteDocument_SelectsFirstRemaining(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	first := mustCurrent(t, app.State())
	second, _ := app.CreateDocument(ctx, "")

	if err := app.DeleteDocument(ctx, second); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cur := mustCurrent(t, app.State()); cur.ID != first.ID {
		t.Errorf("current = %s, want %s", cur.ID, first.ID)
	}

	if err := app.DeleteDocument(ctx, first.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, ok := app.State().CurrentDocument(); ok {
		t.Error("no chapters remain, selection must be absent")
	}
	if len(app.State().Documents()) != 0 {
		t.Error("documents view should be empty")
	}
}

func TestDeleteDocument_OtherProjectIsUntouched(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	foreign := mustCurrent(t, app.State())
	if _, err := app.CreateProject(ctx, "Second"); err != nil {
		t.Fatal(err)
	}

	var deleted []models.DocumentID
	cancel := app.Subscribe(func(_ State, a Action) {
		if a.Type == DeleteDocument {
			deleted = append(deleted, a.DocumentID)
		}
	})
	defer cancel()

	if err := app.DeleteDocument(ctx, foreign.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("DELETE_DOCUMENT dispatched for %v", deleted)
	}
	if _, ok := docs.FindDocumentByID(ctx, foreign.ID); !ok {
		t.Error("chapter of another project was removed")
	}
	if _, ok := app.State().Document(foreign.ID); !ok {
		t.Error("chapter of another project dropped from state")
	}
}

func TestSelectProjectAndDocument(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	first, _ := app.State().CurrentProject()

	p, err := app.CreateProject(ctx, "Essays")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if cur, _ := app.State().CurrentProject(); cur.ID != p.ID {
		t.Error("created project should be current")
	}
	if _, err := app.SelectProject(ctx, first.ID); err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	if _, err := app.SelectProject(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := app.SelectDocument(ctx, models.DocumentID("missing")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	d := first.Documents[0]
	if _, err := app.SelectDocument(ctx, d); err != nil {
		t.Fatalf("SelectDocument: %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	app, _, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := app.UpdateProject(ctx, models.ProjectPatch{Name: models.Set("x")}); !errors.Is(err, apperr.ErrNoProjectSelected) {
		t.Errorf("err = %v", err)
	}
	_ = app.Bootstrap(ctx)
	p, err := app.UpdateProject(ctx, models.ProjectPatch{Name: models.Set("Saga")})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	cur, _ := app.State().CurrentProject()
	if cur.Name != "Saga" || p.Name != "Saga" || len(cur.Documents) != 1 {
		t.Errorf("current = %+v", cur)
	}
}

func TestArchiveAndDeleteProject(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	p, _ := app.State().CurrentProject()

	if _, err := app.ArchiveProject(ctx, p.ID); err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	if got, _ := app.State().Project(p.ID); !got.Archived {
		t.Error("state should reflect archive")
	}
	if _, err := app.RestoreProject(ctx, p.ID); err != nil {
		t.Fatalf("RestoreProject: %v", err)
	}
	if err := app.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if len(docs.ListProjects(ctx)) != 0 || len(app.State().Projects()) != 0 {
		t.Error("project should be gone")
	}
	if _, ok := app.State().CurrentProject(); ok {
		t.Error("no project remains to select")
	}
}

func TestSubscribe(t *testing.T) {
	app, _, _ := newTestStore(t)
	var seen []ActionType
	cancel := app.Subscribe(func(_ State, a Action) { seen = append(seen, a.Type) })

	_ = app.Bootstrap(context.Background())
	if len(seen) != 2 || seen[0] != LoadProjects || seen[1] != SelectDocument {
		t.Errorf("seen = %v", seen)
	}

	cancel()
	cancel()
	app.Dispatch(Load(nil))
	if len(seen) != 2 {
		t.Error("cancelled listener still notified")
	}
}

func TestReload(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	_, _ = docs.CreateProject(ctx, "Elsewhere")

	st := app.Reload(ctx)
	if len(st.Projects()) != 2 {
		t.Errorf("projects = %d, want 2", len(st.Projects()))
	}
	if _, ok := st.CurrentDocument(); !ok {
		t.Error("selection should survive reload")
	}
}

func TestRefresh(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)

	if app.Refresh(ctx) {
		t.Error("refresh without external change should be a no-op")
	}

	p, _ := app.State().CurrentProject()
	d, err := docs.CreateDocument(ctx, p.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !app.Refresh(ctx) {
		t.Fatal("refresh should pick up the external write")
	}
	if _, ok := app.State().Document(d.ID); !ok {
		t.Error("external chapter missing from state")
	}
	if app.Refresh(ctx) {
		t.Error("second refresh should be a no-op")
	}
}

func TestUpdateDocumentIfMatch(t *testing.T) {
	app, docs, _ := newTestStore(t)
	ctx := context.Background()
	_ = app.Bootstrap(ctx)
	d := mustCurrent(t, app.State())
	tag := checksum.Of(d.Content)

	if _, err := app.UpdateDocumentIfMatch(ctx, d, models.DocumentPatch{Content: models.Set("v1")}, tag); err != nil {
		t.Fatalf("matching tag: %v", err)
	}
	_, err := app.UpdateDocumentIfMatch(ctx, d, models.DocumentPatch{Content: models.Set("v2")}, tag)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale tag err = %v, want ErrConflict", err)
	}
	loc, _ := docs.FindDocumentByID(ctx, d.ID)
	if loc.Document.Content != "v1" {
		t.Errorf("content = %q, stale write must not land", loc.Document.Content)
	}
	if _, err := app.UpdateDocumentIfMatch(ctx, d, models.DocumentPatch{Content: models.Set("v3")}, ""); err != nil {
		t.Errorf("empty tag skips the check: %v", err)
	}
}
