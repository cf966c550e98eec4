// Package mcp exposes a session index to MCP clients over stdio.
package mcp

import "time"

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	// Question is answered from the indexed papers.
	Question string `json:"question" jsonschema:"The question to answer from the indexed papers"`
}

// AskQuestionOutput contains the model answer and the chunks it used.
type AskQuestionOutput struct {
	Answer  string        `json:"answer"`
	Sources []ChunkResult `json:"sources"`
}

// SearchChunksInput defines the input parameters for the search_chunks tool.
type SearchChunksInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"The semantic search query"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (default 4)"`
}

// SearchChunksOutput contains the search results.
type SearchChunksOutput struct {
	Results []ChunkResult `json:"results"`
	// Message provides informational context (e.g., "No chunks indexed").
	Message string `json:"message,omitempty"`
}

// ChunkResult is a single chunk match.
type ChunkResult struct {
	PaperID string  `json:"paper_id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// ListPapersInput takes no parameters.
type ListPapersInput struct{}

// ListPapersOutput contains every paper in the index.
type ListPapersOutput struct {
	Papers []Paper `json:"papers"`
	Count  int     `json:"count"`
}

// Paper describes one fetched paper.
type Paper struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Published   time.Time `json:"published"`
	AbstractURL string    `json:"abstract_url"`
	Path        string    `json:"path"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput summarizes how the index was built.
type StatusOutput struct {
	Query       string          `json:"query"`
	TotalPapers int             `json:"total_papers"`
	TotalPages  int             `json:"total_pages"`
	TotalChunks int             `json:"total_chunks"`
	Failures    []FailureResult `json:"failures"`
	IndexedAt   time.Time       `json:"indexed_at"`
	Duration    string          `json:"duration"`
}

// FailureResult is an item skipped while indexing.
type FailureResult struct {
	Stage  string `json:"stage"`
	Item   string `json:"item"`
	Reason string `json:"reason"`
}
