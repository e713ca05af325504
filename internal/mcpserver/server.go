// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Keepsake tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkarlsen/keepsake/internal/journal"
	"github.com/mkarlsen/keepsake/internal/models"
)

// Server wraps the MCP server with Keepsake tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
}

// New creates a new MCP server with all Keepsake tools registered.
func New(svc *journal.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Keepsake",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_memories",
		mcp.WithDescription("List all memories, newest capture date first. Returns id, capture date, mood, age label, and note for each."),
	), s.listMemories)

	s.mcp.AddTool(mcp.NewTool("read_memory",
		mcp.WithDescription("Read one memory in full, including its image metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory identifier from list_memories")),
	), s.readMemory)

	s.mcp.AddTool(mcp.NewTool("create_memory",
		mcp.WithDescription("Create a new text-only memory. Photos are attached later via the web UI. "+
			"Fields MUST follow the memory format contract; read it first via the "+
			"get_memory_contract tool or the keepsake://memory-format resource."),
		mcp.WithString("capture_date", mcp.Required(), mcp.Description("Day the moment happened, YYYY-MM-DD")),
		mcp.WithString("mood", mcp.Required(), mcp.Description("One of: "+moodList())),
		mcp.WithString("note", mcp.Description("Short free-text description of the moment")),
	), s.createMemory)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the note text of an existing memory. All other fields are untouched."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory identifier")),
		mcp.WithString("note", mcp.Required(), mcp.Description("New note text")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_memory_contract",
		mcp.WithDescription("Returns the canonical Keepsake memory format contract. "+
			"Call this before creating or updating memories."),
	), s.getMemoryContract)

	// Resource: memory format contract.
	s.mcp.AddResource(
		mcp.NewResource("keepsake://memory-format", "Memory Format Contract",
			mcp.WithResourceDescription("Canonical memory shape that tool calls must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMemoryFormatResource,
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

func moodList() string {
	var names []string
	for _, m := range models.Moods() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

type memorySummary struct {
	ID          string `json:"id"`
	CaptureDate string `json:"capture_date"`
	Mood        string `json:"mood"`
	AgeLabel    string `json:"age_label,omitempty"`
	Note        string `json:"note,omitempty"`
	Photos      int    `json:"photos"`
}

func (s *Server) listMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.ListMemories(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]memorySummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, memorySummary{
			ID:          rec.ID,
			CaptureDate: rec.CaptureDate,
			Mood:        string(rec.Mood),
			AgeLabel:    rec.AgeLabel,
			Note:        rec.Note,
			Photos:      len(rec.Images),
		})
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.GetMemory(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("capture_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mood, err := req.RequireString("mood")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note := req.GetString("note", "")

	res, err := s.svc.CreateTextMemory(ctx, date, note, models.Mood(mood))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", res.Record.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.UpdateNote(ctx, id, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", rec.ID)), nil
}

func (s *Server) getMemoryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MemoryFormatContract), nil
}

func (s *Server) readMemoryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "keepsake://memory-format",
			MIMEType: "text/markdown",
			Text:     MemoryFormatContract,
		},
	}, nil
}
