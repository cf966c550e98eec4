// Package index builds the per-session vector index over chunks and serves
// similarity retrieval from it.
package index

import (
	"context"
	"fmt"

	"github.com/bull/ragademic/internal/domain"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// EmbeddingFunction turns text into vectors. Documents and queries may be
// embedded differently by some models, hence two methods.
type EmbeddingFunction interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// DocumentIndex stores chunk vectors and ranks them by cosine similarity.
type DocumentIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// Index is read-only once built. It owns the store it was built on.
type Index struct {
	embed EmbeddingFunction
	store DocumentIndex
	size  int
}

// Build embeds every chunk and writes it to store. An empty chunk list
// yields an empty index without calling the embedding function.
func Build(ctx context.Context, chunks []domain.Chunk, embed EmbeddingFunction, store DocumentIndex) (*Index, error) {
	if embed == nil || store == nil {
		return nil, domain.WrapError(domain.ErrIndex, "build index", fmt.Errorf("embedding function and store are required"))
	}

	idx := &Index{embed: embed, store: store}
	if len(chunks) == 0 {
		return idx, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embed.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndex, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(domain.ErrIndex, "embed chunks",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, domain.WrapError(domain.ErrIndex, "store chunks", err)
	}

	idx.size = len(chunks)
	return idx, nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	return idx.size
}

// Retrieve returns min(k, Size()) chunks in non-increasing similarity order,
// ties broken by chunk sequence. A non-positive k uses DefaultTopK.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if idx.size == 0 {
		return nil, nil
	}

	vector, err := idx.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := idx.store.Search(ctx, vector, min(k, idx.size))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// Close releases the underlying store.
func (idx *Index) Close() error {
	return idx.store.Close()
}
