package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/retrieval"
	"github.com/bull/techplus-rag/internal/session"
	"github.com/bull/techplus-rag/internal/storage"
)

// Searcher is the search side the tools call into. retrieval.Coordinator
// implements it.
type Searcher interface {
	Search(ctx context.Context, query string, filter domain.Filter, n int) []domain.RankedResult
	SearchMany(ctx context.Context, reqs []retrieval.Request) [][]domain.RankedResult
	SectionText(ctx context.Context, entityID string) (domain.PolicyHit, string, error)
}

// IndexStatus reports on the vector index.
type IndexStatus interface {
	HealthChecker
	Stats(ctx context.Context) (*storage.CollectionInfo, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Searcher Searcher
	Sessions *session.Store
	Index    IndexStatus
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "techplus-store-assistant",
		Version: "v0.1.0",
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewStore()
	}
	server := mcp.NewServer(impl, &mcp.ServerOptions{
		InitializedHandler: func(_ context.Context, req *mcp.InitializedRequest) {
			forgetOnClose(req.Session, sessions)
		},
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_catalog",
		Description: "Search the TechPlus product catalog. Accepts English or Vietnamese queries and optional category and USD price filters. Returns distinct products ordered by relevance.",
	}, makeSearchCatalogHandler(cfg.Searcher, sessions))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_policy",
		Description: "Search TechPlus store policies (warranty, returns, shipping, payment, installment). Returns matching sections; use policy_section to read a whole section.",
	}, makeSearchPolicyHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "policy_section",
		Description: "Retrieve the full text of a policy section by the section_id returned from search_policy.",
	}, makePolicySectionHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_build",
		Description: "Recommend PC components for a purpose and budget. Searches every component category in parallel and returns options per category with an estimated total.",
	}, makeRecommendBuildHandler(cfg.Searcher, sessions))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recently_advised",
		Description: "List the products most recently recommended in this conversation and whether they form a PC build.",
	}, makeRecentlyAdvisedHandler(sessions))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_health",
		Description: "Report whether the product and policy index is reachable and how many chunks it holds.",
	}, makeIndexHealthHandler(cfg.Index))

	return &Server{server: server}
}

// forgetOnClose drops the conversation state of ss once its connection ends.
// Sessions without an ID share the default conversation and are left alone.
func forgetOnClose(ss *mcp.ServerSession, sessions *session.Store) {
	id := ss.ID()
	if id == "" {
		return
	}
	go func() {
		_ = ss.Wait()
		sessions.Forget(id)
	}()
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
