package storage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/bull/ragademic/internal/domain"
)

// errPrecomputed is returned if chromem ever tries to embed text itself.
// Every document and query handed to the collection carries its vector.
var errPrecomputed = errors.New("embeddings are computed by the index builder")

// ChromemStore keeps chunk vectors in an in-process chromem-go collection.
// It lives only as long as the session.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu  sync.RWMutex
	dim int
}

// NewChromemStore creates an empty in-memory collection.
func NewChromemStore(name string) (*ChromemStore, error) {
	if name == "" {
		name = DefaultCollectionName
	}
	db := chromem.NewDB()
	collection, err := db.CreateCollection(name, nil, func(context.Context, string) ([]float32, error) {
		return nil, errPrecomputed
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &ChromemStore{db: db, collection: collection}, nil
}

// Upsert adds chunks with their vectors. All vectors must share one dimension.
func (s *ChromemStore) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 && len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := checkVectors(chunks, vectors, s.dim)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  chunkMetadata(c),
			Embedding: vectors[i],
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	s.dim = dim
	return nil
}

// Search returns the limit chunks most similar to vector.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// chromem requires 0 < NResults <= Count, so rank the whole collection
	n := s.collection.Count()
	if n == 0 || limit <= 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dim)
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		hits = append(hits, domain.ScoredChunk{
			Chunk: chunkFromMetadata(r.ID, r.Content, r.Metadata),
			Score: float64(r.Similarity),
		})
	}
	return rank(hits, limit), nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count(context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close drops the collection.
func (s *ChromemStore) Close() error {
	return s.db.DeleteCollection(s.collection.Name)
}
