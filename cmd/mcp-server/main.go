// Package main provides the MCP server entry point: it indexes the papers
// for one arXiv query and serves questions about them over stdio.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/ragademic/internal/bootstrap"
	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/logging"
	mcpserver "github.com/bull/ragademic/internal/mcp"
	"github.com/bull/ragademic/internal/rag"
)

var (
	configPath string
	query      string
)

var rootCmd = &cobra.Command{
	Use:   "ragademic-mcp",
	Short: "Serve one arXiv query index over MCP stdio",
	Long: `Fetches and indexes the papers for one arXiv query, then serves the tools
ask_question, search_chunks, list_papers and get_index_status over stdio.

Environment variables:
  ARXIV_QUERY     Query to index when --query is not given
  OPENAI_API_KEY  API key for embeddings and chat (required)`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&query, "query", "", "arXiv search query to index (default $ARXIV_QUERY)")
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if query == "" {
		query = os.Getenv("ARXIV_QUERY")
	}
	if query == "" {
		return fmt.Errorf("no query: set --query or ARXIV_QUERY")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries the protocol, so logs go to the session log file only
	logger, closeLog, err := logging.Open(cfg.LogDir, cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer closeLog()

	components, err := bootstrap.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	log.Printf("Indexing papers for %q...", query)
	result, err := components.Pipeline.Run(ctx, query)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	defer result.Index.Close()
	log.Printf("Indexed %d papers, %d chunks", len(result.Papers), result.TotalChunks)

	server := mcpserver.NewServer(&mcpserver.Config{
		Result:    result,
		Retriever: result.Index,
		Answerer:  rag.NewComposer(result.Index, components.Model, cfg.TopK),
		TopK:      cfg.TopK,
	})

	log.Println("Starting ragademic MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
