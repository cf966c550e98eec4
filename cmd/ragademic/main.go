// Package main provides the ragademic console: search arXiv, index the
// matching papers and answer questions about them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/ragademic/internal/bootstrap"
	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/logging"
	"github.com/bull/ragademic/internal/session"
)

var (
	configPath   string
	maxResults   int
	downloadDir  string
	chunkSize    int
	chunkOverlap int
	topK         int
	indexBackend string
	llmBackend   string
)

var rootCmd = &cobra.Command{
	Use:   "ragademic",
	Short: "Ask questions about arXiv papers",
	Long: `Searches arXiv, downloads the matching papers, indexes them and answers
questions about their content until you type exit or quit.

Environment variables:
  OPENAI_API_KEY     API key for embeddings and chat (required)
  OPENAI_BASE_URL    OpenAI-compatible endpoint (optional)
  LLM_BACKEND        openai or langchain (default: openai)
  INDEX_BACKEND      memory or qdrant (default: memory)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  LOG_DIR, LOG_FILE  Session log location (default: logs/rag_chain.log)`,
	SilenceUsage: true,
	RunE:         runSession,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Download the papers matching a query without indexing them",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.IntVar(&maxResults, "max-results", config.DefaultMaxResults, "number of papers to fetch")
	flags.StringVar(&downloadDir, "download-dir", config.DefaultDownloadDir, "directory for downloaded PDFs")
	flags.IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "maximum chunk length in characters")
	flags.IntVar(&chunkOverlap, "chunk-overlap", config.DefaultChunkOverlap, "characters shared by consecutive chunks")
	flags.IntVar(&topK, "top-k", config.DefaultTopK, "chunks retrieved per question")
	flags.StringVar(&indexBackend, "index-backend", config.IndexMemory, "vector store: memory or qdrant")
	flags.StringVar(&llmBackend, "llm-backend", config.BackendOpenAI, "inference client: openai or langchain")

	rootCmd.AddCommand(fetchCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-results") {
		cfg.MaxResults = maxResults
	}
	if flags.Changed("download-dir") {
		cfg.DownloadDir = downloadDir
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = chunkSize
	}
	if flags.Changed("chunk-overlap") {
		cfg.ChunkOverlap = chunkOverlap
	}
	if flags.Changed("top-k") {
		cfg.TopK = topK
	}
	if flags.Changed("index-backend") {
		cfg.IndexBackend = indexBackend
	}
	if flags.Changed("llm-backend") {
		cfg.LLMBackend = llmBackend
	}
	return cfg, nil
}

func openLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	return logging.Open(cfg.LogDir, cfg.LogFile, cfg.LogLevel)
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	components, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Error("Failed to start session", "error", err)
		return err
	}

	s := session.New(cfg, components.Pipeline, components.Model, os.Stdin, os.Stdout, logger)
	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println()
		return nil
	}
	if domain.IsKind(err, domain.ErrIndex) {
		fmt.Fprintln(os.Stderr, "No index could be built for this query.")
	}
	return err
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.MaxResults <= 0 {
		return fmt.Errorf("%w: max results must be positive", domain.ErrConfiguration)
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	fetcher := bootstrap.NewFetcher(cfg, logger)

	fmt.Printf("Fetching up to %d papers for %q...\n", cfg.MaxResults, args[0])
	batch := fetcher.Fetch(ctx, args[0], cfg.MaxResults)

	fmt.Println()
	fmt.Printf("Downloaded: %d\n", len(batch.Items))
	for _, p := range batch.Items {
		fmt.Printf("  - %s\n", p.Path)
	}

	if len(batch.Failures) > 0 {
		fmt.Println()
		fmt.Println("Failed:")
		for _, f := range batch.Failures {
			fmt.Printf("  - %s: %s\n", f.Item, f.Reason())
		}
	}
	return nil
}
