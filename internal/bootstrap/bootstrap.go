// Package bootstrap wires the session components from a validated Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/ragademic/internal/arxiv"
	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/embedding"
	"github.com/bull/ragademic/internal/index"
	"github.com/bull/ragademic/internal/indexer"
	"github.com/bull/ragademic/internal/llm"
	"github.com/bull/ragademic/internal/loader"
	"github.com/bull/ragademic/internal/storage"
	"github.com/bull/ragademic/internal/textsplit"
)

// Components are the long-lived pieces of a session.
type Components struct {
	Fetcher  *arxiv.Fetcher
	Pipeline *indexer.Pipeline
	Model    llm.LanguageModel
}

// Build validates cfg and constructs every component. No network call is
// made except the Qdrant health check, which runs lazily when an index is
// opened.
func Build(cfg config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder, model, err := newInference(cfg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "create inference clients", err)
	}

	fetcher := NewFetcher(cfg, logger)
	splitter, err := textsplit.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, logger)
	if err != nil {
		return nil, err
	}

	pipeline := indexer.NewPipeline(
		fetcher,
		loader.New(nil, logger),
		splitter,
		embedder,
		NewStoreFactory(cfg, logger),
		cfg.MaxResults,
		logger,
	)

	return &Components{Fetcher: fetcher, Pipeline: pipeline, Model: model}, nil
}

// NewFetcher creates the arXiv fetcher described by cfg.
func NewFetcher(cfg config.Config, logger *slog.Logger) *arxiv.Fetcher {
	client := arxiv.NewClient(cfg.ArxivAPIURL, cfg.RequestInterval)
	return arxiv.NewFetcher(client, cfg.DownloadDir, logger)
}

// NewStoreFactory returns a factory for the configured vector store.
func NewStoreFactory(cfg config.Config, logger *slog.Logger) indexer.StoreFactory {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.IndexBackend {
	case config.IndexQdrant:
		return func(ctx context.Context) (index.DocumentIndex, error) {
			logger.Info("Connecting to Qdrant", "host", cfg.QdrantHost, "port", cfg.QdrantPort)
			store, err := storage.NewQdrantStore(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	default:
		return func(context.Context) (index.DocumentIndex, error) {
			store, err := storage.NewChromemStore(cfg.QdrantCollection)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}
}

func newInference(cfg config.Config) (index.EmbeddingFunction, llm.LanguageModel, error) {
	switch cfg.LLMBackend {
	case config.BackendLangchain:
		embedder, err := embedding.NewLangchainEmbedder(cfg.APIKey, cfg.BaseURL, cfg.EmbeddingModel, cfg.EmbeddingBatchSize)
		if err != nil {
			return nil, nil, err
		}
		model, err := llm.NewLangchainChat(cfg.APIKey, cfg.BaseURL, cfg.ChatModel, cfg.Temperature)
		if err != nil {
			return nil, nil, err
		}
		return embedder, model, nil

	case config.BackendOpenAI:
		client, err := embedding.NewClient(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		// Embeddings and chat share one OpenAI client.
		embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingBatchSize)
		model := llm.NewOpenAIChat(client.Client(), cfg.ChatModel, cfg.Temperature)
		return embedder, model, nil
	}
	return nil, nil, fmt.Errorf("unknown llm backend %q", cfg.LLMBackend)
}
