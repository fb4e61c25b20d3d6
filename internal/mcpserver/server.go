// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes ledgernotes lookups for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ledgernotes/internal/apperr"
	"github.com/starford/ledgernotes/internal/index"
	"github.com/starford/ledgernotes/internal/notes"
	"github.com/starford/ledgernotes/internal/resolver"
)

const entryFormatURI = "ledgernotes://entry-format"

// EntryService is the retrieval pipeline backing the tools.
type EntryService interface {
	Retrieve(ctx context.Context, userID string) (*notes.Retrieval, error)
	ResolveAddress(ctx context.Context, userID string) resolver.Result
}

// Server wraps the MCP server with ledgernotes tools.
type Server struct {
	mcp *server.MCPServer
	svc EntryService
	idx index.SnapshotIndex
}

// New creates a new MCP server with all tools registered. idx may be nil,
// in which case search_entries and cached reads report an error.
func New(svc EntryService, idx index.SnapshotIndex, version string) *Server {
	s := &Server{svc: svc, idx: idx}

	s.mcp = server.NewMCPServer(
		"ledgernotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_entries",
		mcp.WithDescription("List a user's notes stored on the ledger, newest first. "+
			"Each entry has a unixTimestamp and the message content. "+
			"See the get_entry_format tool or the "+entryFormatURI+" resource for the format."),
		mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
		mcp.WithBoolean("cached", mcp.Description("Read the local snapshot instead of querying the ledger")),
	), s.getEntries)

	s.mcp.AddTool(mcp.NewTool("resolve_address",
		mcp.WithDescription("Resolve the storage address of a user and report which lookup produced it."),
		mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
	), s.resolveAddress)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through locally indexed entries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("user", mcp.Description("Optional user to restrict the search to")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry_format",
		mcp.WithDescription("Returns the description of how ledger note entries are decoded."),
	), s.getEntryFormat)

	s.mcp.AddResource(
		mcp.NewResource(entryFormatURI, "Entry Format",
			mcp.WithResourceDescription("How per-user note maps on the ledger decode into entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	user = strings.TrimSpace(user)

	if req.GetBool("cached", false) {
		if s.idx == nil {
			return mcp.NewToolResultError("snapshot index disabled"), nil
		}
		snap, err := s.idx.GetSnapshot(user)
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no snapshot for user: %s", user)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entries, _, err := s.idx.ListEntries(user, 0, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"user_id":      user,
			"address":      snap.Address,
			"source":       snap.Source,
			"refreshed_at": snap.RefreshedAt,
			"entries":      entries,
		})
	}

	r, err := s.svc.Retrieve(ctx, user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"user_id": user,
		"address": r.Resolution.Address,
		"source":  r.Resolution.Source,
		"shape":   r.Shape,
		"entries": r.Entries,
	})
}

func (s *Server) resolveAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.ResolveAddress(ctx, user)
	if !res.Found() {
		return mcp.NewToolResultText(fmt.Sprintf("no address found for %s", user)), nil
	}
	return jsonResult(res)
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.idx == nil {
		return mcp.NewToolResultError("snapshot index disabled"), nil
	}
	results, err := s.idx.Search(query, strings.TrimSpace(req.GetString("user", "")), req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching entries"), nil
	}
	return jsonResult(results)
}

func (s *Server) getEntryFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormat), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entryFormatURI,
			MIMEType: "text/markdown",
			Text:     EntryFormat,
		},
	}, nil
}
