// Package storage holds the vector stores behind a session index: an
// in-process chromem-go collection and an optional Qdrant collection.
package storage

import (
	"fmt"
	"strconv"

	"github.com/bull/ragademic/internal/domain"
)

// DefaultCollectionName is the collection a session writes its chunks to.
const DefaultCollectionName = "arxiv_chunks"

// VectorName is the named Qdrant vector holding chunk embeddings.
const VectorName = "content"

// Payload keys shared by both stores.
const (
	keySource  = "source"
	keyPaperID = "paper_id"
	keyPage    = "page"
	keyIndex   = "index"
	keySeq     = "seq"
	keyText    = "text"
)

// checkVectors validates a batch before it is written and returns the
// embedding dimension. want is the dimension already in the store, 0 if none.
func checkVectors(chunks []domain.Chunk, vectors [][]float32, want int) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks, %d vectors", ErrVectorCountMismatch, len(chunks), len(vectors))
	}
	dim := want
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

func chunkMetadata(c domain.Chunk) map[string]string {
	return map[string]string{
		keySource:  c.Source,
		keyPaperID: c.PaperID,
		keyPage:    strconv.Itoa(c.Page),
		keyIndex:   strconv.Itoa(c.Index),
		keySeq:     strconv.Itoa(c.Seq),
	}
}

func chunkFromMetadata(id, text string, md map[string]string) domain.Chunk {
	page, _ := strconv.Atoi(md[keyPage])
	index, _ := strconv.Atoi(md[keyIndex])
	seq, _ := strconv.Atoi(md[keySeq])
	return domain.Chunk{
		ID:      id,
		Source:  md[keySource],
		PaperID: md[keyPaperID],
		Page:    page,
		Index:   index,
		Seq:     seq,
		Text:    text,
	}
}
