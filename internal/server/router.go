package server

import (
	"log/slog"
	"net/http"

	"github.com/greyhelm/rulekeeper/internal/rag"
)

// Deps are the handlers' shared dependencies.
type Deps struct {
	Service *rag.Service
	Health  HealthChecker
	MCP     http.Handler
	Logger  *slog.Logger
}

// NewMux builds the full route table. The MCP handler is optional; when nil
// the /mcp route is not mounted.
func NewMux(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", NewLandingHandler())
	mux.HandleFunc("/query", NewQueryHandler(deps.Service, deps.Logger))
	mux.HandleFunc("/health", NewHealthHandler(deps.Health))
	if deps.MCP != nil {
		mux.Handle("/mcp", deps.MCP)
	}
	return mux
}
