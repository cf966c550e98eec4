// Package domain holds the records that flow between pipeline stages.
package domain

import "time"

// PaperReference is one paper fetched from arXiv and stored on local disk.
type PaperReference struct {
	ID          string    // Versioned arXiv ID: "2301.00001v2"
	Title       string    // Paper title, whitespace normalized
	Authors     []string  // Author names in catalog order
	Published   time.Time // First submission time
	AbstractURL string    // https://arxiv.org/abs/<id>
	Path        string    // Local PDF path
}

// PageRecord is the extracted text of one page of a document.
type PageRecord struct {
	Source  string // Local path of the originating file
	PaperID string // Empty when the file did not come from the fetcher
	Page    int    // Zero-based page index
	Text    string
}

// Chunk is a bounded fragment of a PageRecord, the unit stored in the index.
type Chunk struct {
	ID      string // UUID
	Source  string // Inherited from PageRecord
	PaperID string // Inherited from PageRecord
	Page    int    // Inherited from PageRecord
	Index   int    // Position within its page (0, 1, 2...)
	Seq     int    // Position within the whole chunk sequence
	Text    string
}

// ScoredChunk is a retrieval hit with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Failure records one item a fail-soft stage had to skip.
type Failure struct {
	Item string // Path, paper ID or stage name
	Err  error
}

// Reason returns the failure message, suitable for reports.
func (f Failure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Batch is the result of a fail-soft stage: everything that succeeded plus
// every item that was skipped.
type Batch[T any] struct {
	Items    []T
	Failures []Failure
}

// Fail appends a failure to the batch.
func (b *Batch[T]) Fail(item string, err error) {
	b.Failures = append(b.Failures, Failure{Item: item, Err: err})
}

// Empty reports whether the batch produced no items.
func (b *Batch[T]) Empty() bool {
	return len(b.Items) == 0
}
