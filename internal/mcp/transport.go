package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Conversations then share the
	// default session unless tool calls pass session_id explicitly.
	Stateless bool
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable
// HTTP transport. Each MCP session gets its own advised-products context.
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	})
}

// NewMux mounts the landing page, /mcp, /health and, when metrics is non-nil,
// /metrics.
func NewMux(server *Server, index HealthChecker, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", NewLandingHandler())
	mux.Handle("/mcp", NewHTTPHandler(server, nil))
	mux.HandleFunc("/health", NewHealthHandler(index))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
