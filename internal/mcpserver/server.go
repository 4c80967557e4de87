// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the photo board to LLM clients over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/photoboard/internal/apperr"
	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/workflow"
)

// WorkflowURI is the resource that serves WorkflowContract.
const WorkflowURI = "photoboard://workflow"

// Workflow is the engine surface the tools drive.
type Workflow interface {
	Catalog() models.Catalog
	Get(id string) (models.Photo, error)
	Move(ctx context.Context, id string, target models.Category) (models.Catalog, error)
	Archive(ctx context.Context, id string) (models.Photo, error)
	Ingest(ctx context.Context, uploads []workflow.Upload) ([]models.Photo, error)
	Audit() (workflow.Report, error)
	Verify() (workflow.Report, error)
}

// History reads the transition journal.
type History interface {
	History(photoID string) ([]index.Transition, error)
}

// Server wraps the MCP server with photo board tools.
type Server struct {
	mcp     *server.MCPServer
	engine  Workflow
	journal History
	policy  workflow.Policy
	fetch   func(ctx context.Context, rawURL string, limit int64) ([]byte, string, error)
}

// New creates a new MCP server with all tools registered.
func New(engine Workflow, journal History, policy workflow.Policy) *Server {
	s := &Server{engine: engine, journal: journal, policy: policy, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"Photoboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_photos",
		mcp.WithDescription("List photos grouped by category (todo, doing, done)."),
		mcp.WithString("category", mcp.Description("Optional category to list (todo, doing, done or archived)")),
	), s.listPhotos)

	s.mcp.AddTool(mcp.NewTool("get_photo",
		mcp.WithDescription("Get a single photo record by id, archived photos included."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Photo id")),
	), s.getPhoto)

	s.mcp.AddTool(mcp.NewTool("move_photo",
		mcp.WithDescription("Move a photo to todo, doing or done. The photo is appended to the end of the target column. "+
			"Read the contract first via the get_workflow_contract tool or the "+WorkflowURI+" resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Photo id")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Target category: todo, doing or done")),
	), s.movePhoto)

	s.mcp.AddTool(mcp.NewTool("archive_photo",
		mcp.WithDescription("Archive a photo. Archived photos leave the board and cannot be moved back."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Photo id")),
	), s.archivePhoto)

	s.mcp.AddTool(mcp.NewTool("photo_history",
		mcp.WithDescription("List the recorded category transitions of a photo, oldest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Photo id")),
	), s.photoHistory)

	s.mcp.AddTool(mcp.NewTool("audit_catalog",
		mcp.WithDescription("Compare the catalog with the files on disk and report missing, untracked or misfiled photos."),
		mcp.WithBoolean("verify", mcp.Description("Also re-hash each file and report content that no longer matches its checksum")),
	), s.auditCatalog)

	s.mcp.AddTool(mcp.NewTool("ingest_photo",
		mcp.WithDescription("Add a photo to todo from an http(s) URL or a base64 data URI."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional original filename; only its extension is kept")),
	), s.ingestPhoto)

	s.mcp.AddTool(mcp.NewTool("get_workflow_contract",
		mcp.WithDescription("Returns the photo board workflow contract. "+
			"Call this before moving or archiving photos."),
	), s.getWorkflowContract)

	// Resource: workflow contract.
	s.mcp.AddResource(
		mcp.NewResource(WorkflowURI, "Workflow Contract",
			mcp.WithResourceDescription("Categories, transitions and ordering rules of the photo board."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readWorkflowResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Handler serves the tools over streamable HTTP, sharing the caller's engine.
// It is stateless: every POST carries a complete JSON-RPC request.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("photo not found")
	case errors.Is(err, apperr.ErrInvalidCategory):
		return mcp.NewToolResultError("invalid category (use todo, doing or done)")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listPhotos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat := s.engine.Catalog()
	name := req.GetString("category", "")
	if name == "" {
		return jsonResult(cat)
	}
	c := models.Category(name)
	if !c.Valid() {
		return errorResult(apperr.ErrInvalidCategory), nil
	}
	photos := cat[c]
	if photos == nil {
		photos = []models.Photo{}
	}
	return jsonResult(photos)
}

func (s *Server) getPhoto(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.engine.Get(id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(p)
}

func (s *Server) movePhoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target := models.Category(category)
	cat, err := s.engine.Move(ctx, id, target)
	if err != nil {
		return errorResult(err), nil
	}
	p, _, _, ok := cat.Find(id, target)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("photo %s missing from %s after move", id, target)), nil
	}
	return jsonResult(p)
}

func (s *Server) archivePhoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.engine.Archive(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(p)
}

func (s *Server) photoHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.engine.Get(id); err != nil {
		return errorResult(err), nil
	}
	if s.journal == nil {
		return jsonResult([]index.Transition{})
	}
	rows, err := s.journal.History(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows)
}

func (s *Server) auditCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	audit := s.engine.Audit
	if req.GetBool("verify", false) {
		audit = s.engine.Verify
	}
	report, err := audit()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) getWorkflowContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(WorkflowContract), nil
}

func (s *Server) readWorkflowResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      WorkflowURI,
			MIMEType: "text/markdown",
			Text:     WorkflowContract,
		},
	}, nil
}

func invalidUpload(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidUpload}, args...)...).Error())
}
