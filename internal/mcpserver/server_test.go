package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/testutil"
)

func testServer(t *testing.T) (*Server, *appstate.Store, *docstore.Store) {
	t.Helper()
	app, docs := testutil.NewApp(t)
	db := testutil.TestIndex(t)
	return New(app, docs, db, testutil.Logger(), "test"), app, docs
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper; call the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "create_document":
		result, err = srv.createDocument(ctx, req)
	case "update_document":
		result, err = srv.updateDocument(ctx, req)
	case "rename_document":
		result, err = srv.renameDocument(ctx, req)
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "create_document", map[string]any{"content": "# Dawn\nThe sun rose."})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	var created chapterSummary
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.Name != "Chapter 2" {
		t.Errorf("name = %q, want Chapter 2", created.Name)
	}

	r = callTool(t, srv, "read_document", map[string]any{"document": string(created.ID)})
	if got := resultText(r); got != "# Dawn\nThe sun rose." {
		t.Errorf("read = %q", got)
	}

	// Without an ID the selected chapter is read; create selected it.
	r = callTool(t, srv, "read_document", map[string]any{})
	if got := resultText(r); got != "# Dawn\nThe sun rose." {
		t.Errorf("read current = %q", got)
	}
}

func TestReadDocument_ObjectReference(t *testing.T) {
	srv, app, _ := testServer(t)
	d, _ := app.State().CurrentDocument()
	if _, err := app.UpdateDocument(context.Background(), d.ID, docPatch("hello")); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "read_document", map[string]any{"document": map[string]any{"uuid": string(d.ID)}})
	if got := resultText(r); got != "hello" {
		t.Errorf("read = %q, want hello", got)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "read_document", map[string]any{"document": "nope"})
	if !r.IsError {
		t.Error("expected error for missing chapter")
	}
	r = callTool(t, srv, "read_document", map[string]any{"document": 12})
	if !r.IsError {
		t.Error("expected error for a numeric reference")
	}
}

func TestListProjects(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "list_projects", map[string]any{})
	var out []projectSummary
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(out) != 1 {
		t.Fatalf("projects = %d, want 1", len(out))
	}
	if !out[0].Current || len(out[0].Chapters) != 1 || out[0].Chapters[0].Name != "Chapter 1" {
		t.Errorf("project = %+v", out[0])
	}
}

func TestUpdateAndRenameDocument(t *testing.T) {
	srv, app, docs := testServer(t)
	d, _ := app.State().CurrentDocument()

	r := callTool(t, srv, "update_document", map[string]any{"document": string(d.ID), "content": "new text"})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}
	loc, ok := docs.FindDocumentByID(context.Background(), d.ID)
	if !ok || loc.Document.Content != "new text" {
		t.Errorf("stored content = %q", loc.Document.Content)
	}

	r = callTool(t, srv, "rename_document", map[string]any{"document": string(d.ID), "name": "Prologue"})
	if got := resultText(r); got != "renamed: Prologue" {
		t.Errorf("rename = %q", got)
	}

	r = callTool(t, srv, "rename_document", map[string]any{"document": string(d.ID), "name": "   "})
	if !r.IsError {
		t.Error("expected error for a blank name")
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, app, _ := testServer(t)
	d, _ := app.State().CurrentDocument()
	if _, err := app.UpdateDocument(context.Background(), d.ID, docPatch("a zeppelin drifts by")); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_documents", map[string]any{"query": "zeppelin"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), string(d.ID)) {
		t.Errorf("search result %q does not mention %s", resultText(r), d.ID)
	}
}

func TestSearchDisabled(t *testing.T) {
	app, docs := testutil.NewApp(t)
	srv := New(app, docs, nil, nil, "test")

	r := callTool(t, srv, "search_documents", map[string]any{"query": "x"})
	if !r.IsError {
		t.Error("expected error without an index")
	}
}

func TestChapterFormatResource(t *testing.T) {
	srv, _, _ := testServer(t)

	contents, err := srv.readChapterFormat(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != ChapterFormatURI || !strings.Contains(tc.Text, "[[Target|label]]") {
		t.Errorf("resource = %+v", contents[0])
	}
}

func docPatch(content string) models.DocumentPatch {
	return models.DocumentPatch{Content: models.Set(content)}
}
