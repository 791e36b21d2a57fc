// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes synced conversation notes to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/chatnotes/internal/apperr"
	"github.com/starford/chatnotes/internal/noteservice"
)

// ContractURI is the resource URI of the note format contract.
const ContractURI = "chatnotes://note-format"

// Server wraps the MCP server with chatnotes tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"chatnotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List synced conversation notes, newest first."),
		mcp.WithString("folder", mcp.Description("Optional folder (e.g. ChatGPT or Work/ChatGPT); empty for all")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a conversation note by id. Returns plain text by default."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes or search_notes")),
		mcp.WithString("format", mcp.Description("text (default) or html"), mcp.Enum("text", "html")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and conversation text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Import the configured ChatGPT export now and report what changed."),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note body format contract: allowed markup and the footer sync cursor."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Note Format Contract",
			mcp.WithResourceDescription("Format of conversation notes written by chatnotes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	limit := req.GetInt("limit", 50)

	items, total, err := s.svc.ListNotes(ctx, folder, limit, 0, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", it.ID, it.Folder, it.Title)
	}
	if total > len(items) {
		fmt.Fprintf(&b, "(%d of %d notes)\n", len(items), total)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "text") == "html" {
		return mcp.NewToolResultText(note.Content), nil
	}
	return mcp.NewToolResultText(note.Text), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.SyncNow(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return mcp.NewToolResultError("a sync is already running"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("status: %s\nsynced: %d (created %d, appended %d, overwritten %d, up to date %d)\nfailed: %d\narchived: %d",
		sum.Status, sum.Synced, sum.Created, sum.Appended, sum.Overwritten, sum.UpToDate, sum.Failed, sum.Archived)
	for _, o := range sum.Outcomes {
		if o.Failed() {
			text += fmt.Sprintf("\n- %s (%s): %v", o.Title, o.ConversationID, o.Err)
		}
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
