// Package indexer runs the setup stages of a session: fetch papers, load
// their pages, split them into chunks and build the vector index.
package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/index"
)

// PaperFetcher finds and downloads papers for a query.
type PaperFetcher interface {
	Fetch(ctx context.Context, query string, maxResults int) domain.Batch[domain.PaperReference]
}

// DocumentLoader extracts page records from downloaded papers.
type DocumentLoader interface {
	Load(ctx context.Context, papers []domain.PaperReference) domain.Batch[domain.PageRecord]
}

// Chunker splits page records into chunks.
type Chunker interface {
	Split(records []domain.PageRecord) domain.Batch[domain.Chunk]
}

// StoreFactory opens a fresh vector store for one index.
type StoreFactory func(ctx context.Context) (index.DocumentIndex, error)

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Query       string
	Papers      []domain.PaperReference
	TotalPages  int
	TotalChunks int
	FailedDocs  []FailedDoc
	Duration    time.Duration
	Index       *index.Index
}

// FailedDoc represents an item a stage had to skip.
type FailedDoc struct {
	Stage  string // "fetch", "load" or "split"
	Path   string // Paper ID, file path or stage name
	Reason string
}

// Pipeline orchestrates the full indexing process from fetching to storage.
type Pipeline struct {
	fetcher    PaperFetcher
	loader     DocumentLoader
	chunker    Chunker
	embedder   index.EmbeddingFunction
	newStore   StoreFactory
	maxResults int
	logger     *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(
	fetcher PaperFetcher,
	loader DocumentLoader,
	chunker Chunker,
	embedder index.EmbeddingFunction,
	newStore StoreFactory,
	maxResults int,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:    fetcher,
		loader:     loader,
		chunker:    chunker,
		embedder:   embedder,
		newStore:   newStore,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Run indexes the papers matching query. Fetch, load and split problems are
// reported in the result; only a failure to build the index is returned as
// an error, of kind domain.ErrIndex.
func (p *Pipeline) Run(ctx context.Context, query string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Query: query}
	p.logger.Info("Starting indexing", "query", query)

	// 1. Fetch papers
	papers := p.fetcher.Fetch(ctx, query, p.maxResults)
	result.Papers = papers.Items
	result.addFailures("fetch", papers.Failures)
	p.logger.Info("Fetched papers", "count", len(papers.Items), "failed", len(papers.Failures))

	// 2. Load pages
	pages := p.loader.Load(ctx, papers.Items)
	result.TotalPages = len(pages.Items)
	result.addFailures("load", pages.Failures)
	p.logger.Info("Loaded documents", "pages", len(pages.Items))

	// 3. Split into chunks
	chunks := p.chunker.Split(pages.Items)
	result.TotalChunks = len(chunks.Items)
	result.addFailures("split", chunks.Failures)
	p.logger.Info("Split documents", "chunks", len(chunks.Items))

	// 4. Embed and store
	store, err := p.newStore(ctx)
	if err != nil {
		p.logger.Error("Failed to open vector store", "error", err)
		return nil, domain.WrapError(domain.ErrIndex, "open store", err)
	}
	idx, err := index.Build(ctx, chunks.Items, p.embedder, store)
	if err != nil {
		store.Close()
		p.logger.Error("Failed to build index", "error", err)
		return nil, err
	}
	result.Index = idx

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"papers", len(result.Papers),
		"pages", result.TotalPages,
		"chunks", result.TotalChunks,
		"failed", len(result.FailedDocs),
		"duration", result.Duration,
	)

	return result, nil
}

func (r *IndexResult) addFailures(stage string, failures []domain.Failure) {
	for _, f := range failures {
		r.FailedDocs = append(r.FailedDocs, FailedDoc{
			Stage:  stage,
			Path:   f.Item,
			Reason: f.Reason(),
		})
	}
}
