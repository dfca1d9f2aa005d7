// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/docref"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
)

const searchLimit = 20

// Server wraps the MCP server with folio tools.
type Server struct {
	mcp    *server.MCPServer
	app    *appstate.Store
	docs   *docstore.Store
	db     *index.DB
	logger *slog.Logger
}

// New creates a new MCP server with all folio tools registered. db may be
// nil when the search index is disabled.
func New(app *appstate.Store, docs *docstore.Store, db *index.DB, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{app: app, docs: docs, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects with their chapter IDs and names. Chapter content is not included."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a chapter. Without an ID the selected chapter is read."),
		mcp.WithString("document", mcp.Description("Chapter ID")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Append a chapter to a project and select it. "+
			"Content should follow the folio://chapter-format resource."),
		mcp.WithString("project", mcp.Description("Project ID; defaults to the selected project")),
		mcp.WithString("baseName", mcp.Description("Name prefix, default Chapter")),
		mcp.WithString("content", mcp.Description("Initial chapter text")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Replace the content of a chapter."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Chapter ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New chapter text")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("rename_document",
		mcp.WithDescription("Rename a chapter. The name must not be empty."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Chapter ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New chapter name")),
	), s.renameDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through chapter content, names and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddResource(
		mcp.NewResource(ChapterFormatURI, "Chapter Format",
			mcp.WithResourceDescription("How chapter text is parsed for titles, tags, links and word counts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readChapterFormat,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type chapterSummary struct {
	ID   models.DocumentID `json:"id"`
	Name string            `json:"name"`
}

type projectSummary struct {
	ID       models.ProjectID `json:"id"`
	Name     string           `json:"name"`
	Archived bool             `json:"archived,omitempty"`
	Current  bool             `json:"current,omitempty"`
	Chapters []chapterSummary `json:"chapters"`
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.app.Reload(ctx)
	cur, _ := st.CurrentProject()

	out := []projectSummary{}
	for _, p := range st.Projects() {
		ps := projectSummary{ID: p.ID, Name: p.Name, Archived: p.Archived, Current: p.ID == cur.ID, Chapters: []chapterSummary{}}
		for _, d := range p.Documents {
			ps.Chapters = append(ps.Chapters, chapterSummary{ID: d.ID, Name: d.Name})
		}
		out = append(out, ps)
	}
	return jsonResult(out)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := docref.FromArgs(req.GetArguments(), "document")
	if !ok {
		if _, ok := req.GetArguments()["document"]; ok {
			return mcp.NewToolResultError("document must be a chapter ID"), nil
		}
		_, d, err := s.app.Current()
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(d.Content), nil
	}
	loc, found := s.docs.FindDocumentByID(ctx, id)
	if !found {
		return toolError(apperr.NotFound("document", id)), nil
	}
	return mcp.NewToolResultText(loc.Document.Content), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if pid := req.GetString("project", ""); pid != "" {
		if _, err := s.app.SelectProject(ctx, models.ProjectID(pid)); err != nil {
			return toolError(err), nil
		}
	}
	d, err := s.app.CreateDocument(ctx, req.GetString("baseName", ""))
	if err != nil {
		return toolError(err), nil
	}
	if content := req.GetString("content", ""); content != "" {
		d, err = s.app.UpdateDocument(ctx, d.ID, models.DocumentPatch{Content: models.Set(content)})
		if err != nil {
			return toolError(err), nil
		}
	}
	return jsonResult(chapterSummary{ID: d.ID, Name: d.Name})
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := docref.FromArgs(req.GetArguments(), "document")
	if !ok {
		return mcp.NewToolResultError("document must be a chapter ID"), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.app.UpdateDocument(ctx, id, models.DocumentPatch{Content: models.Set(content)})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", d.Name)), nil
}

func (s *Server) renameDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := docref.FromArgs(req.GetArguments(), "document")
	if !ok {
		return mcp.NewToolResultError("document must be a chapter ID"), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.app.UpdateDocumentName(ctx, id, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s", d.Name)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// The stdio process has no background syncer.
	if _, err := index.Sync(ctx, s.db, s.docs, s.logger); err != nil {
		return toolError(err), nil
	}
	results, err := s.db.Search(ctx, query, searchLimit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) readChapterFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ChapterFormatURI,
			MIMEType: "text/markdown",
			Text:     ChapterFormat,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError reports domain failures to the model instead of failing the call.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrInvalidID),
		errors.Is(err, apperr.ErrNoProjectSelected):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error: " + err.Error())
	}
}
