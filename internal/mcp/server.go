package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/ragademic/internal/index"
	"github.com/bull/ragademic/internal/indexer"
)

// Server wraps the MCP server with the session it serves.
type Server struct {
	server *mcp.Server
	result *indexer.IndexResult
}

// Config holds server dependencies.
type Config struct {
	Result    *indexer.IndexResult
	Retriever index.Retriever
	Answerer  Answerer
	TopK      int
	Version   string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = index.DefaultTopK
	}

	impl := &mcp.Implementation{
		Name:    "ragademic",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question from the arXiv papers indexed for this session. Returns the answer and the chunks it was based on.",
	}, makeAskHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Semantic search over the indexed paper chunks. Returns chunk text with paper, page and similarity score.",
	}, makeSearchHandler(cfg.Retriever, topK))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_papers",
		Description: "List the arXiv papers downloaded and indexed for this session.",
	}, makeListHandler(cfg.Result))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the search query, paper, page and chunk counts of the session index, plus any items skipped while indexing.",
	}, makeStatusHandler(cfg.Result, time.Now().UTC()))

	return &Server{
		server: server,
		result: cfg.Result,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
