package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/greyhelm/rulekeeper/internal/ingest"
	"github.com/greyhelm/rulekeeper/internal/rag"
	"github.com/greyhelm/rulekeeper/internal/store"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service     *rag.Service
	Collection  store.Collection
	Coordinator *ingest.Coordinator
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "rulekeeper",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_rules",
		Description: "Answer a tabletop RPG rules question grounded in the indexed rulebooks. Returns the answer plus the passages it was based on.",
	}, makeAskHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_rules",
		Description: "Search rulebook passages semantically without generating an answer. Returns matching chunks with provenance.",
	}, makeSearchHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List all indexed rulebook source files.",
	}, makeListHandler(cfg.Collection))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the index state: chunk and source counts, last freshness check, and per-corpus watermarks.",
	}, makeStatusHandler(cfg.Collection, cfg.Coordinator))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
