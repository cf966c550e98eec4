package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/index"
	"github.com/bull/ragademic/internal/indexer"
	"github.com/bull/ragademic/internal/rag"
)

const maxSearchResults = 20

// Answerer answers a question from the session index.
type Answerer interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
}

// makeAskHandler creates the ask_question tool handler.
func makeAskHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		question := strings.TrimSpace(input.Question)
		if question == "" {
			return nil, AskQuestionOutput{}, fmt.Errorf("question is empty")
		}

		answer, err := answerer.Answer(ctx, question)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("error answering question: %w", err)
		}

		return nil, AskQuestionOutput{
			Answer:  answer.Text,
			Sources: toChunkResults(answer.Sources),
		}, nil
	}
}

// makeSearchHandler creates the search_chunks tool handler.
func makeSearchHandler(retriever index.Retriever, topK int) func(
	context.Context, *mcp.CallToolRequest, SearchChunksInput,
) (*mcp.CallToolResult, SearchChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (
		*mcp.CallToolResult, SearchChunksOutput, error,
	) {
		// Apply defaults
		k := input.MaxResults
		if k <= 0 {
			k = topK
		}
		k = min(k, maxSearchResults)

		hits, err := retriever.Retrieve(ctx, input.Query, k)
		if err != nil {
			return nil, SearchChunksOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(hits) == 0 {
			return nil, SearchChunksOutput{
				Results: []ChunkResult{},
				Message: "No chunks indexed for this session. Try a broader arXiv query.",
			}, nil
		}
		return nil, SearchChunksOutput{Results: toChunkResults(hits)}, nil
	}
}

// makeListHandler creates the list_papers tool handler.
func makeListHandler(result *indexer.IndexResult) func(
	context.Context, *mcp.CallToolRequest, ListPapersInput,
) (*mcp.CallToolResult, ListPapersOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListPapersInput) (
		*mcp.CallToolResult, ListPapersOutput, error,
	) {
		papers := make([]Paper, 0, len(result.Papers))
		for _, p := range result.Papers {
			authors := p.Authors
			if authors == nil {
				authors = []string{} // Ensure non-nil for JSON marshaling
			}
			papers = append(papers, Paper{
				ID:          p.ID,
				Title:       p.Title,
				Authors:     authors,
				Published:   p.Published,
				AbstractURL: p.AbstractURL,
				Path:        p.Path,
			})
		}
		return nil, ListPapersOutput{Papers: papers, Count: len(papers)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(result *indexer.IndexResult, indexedAt time.Time) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		failures := make([]FailureResult, 0, len(result.FailedDocs))
		for _, f := range result.FailedDocs {
			failures = append(failures, FailureResult{Stage: f.Stage, Item: f.Path, Reason: f.Reason})
		}

		return nil, StatusOutput{
			Query:       result.Query,
			TotalPapers: len(result.Papers),
			TotalPages:  result.TotalPages,
			TotalChunks: result.TotalChunks,
			Failures:    failures,
			IndexedAt:   indexedAt,
			Duration:    result.Duration.String(),
		}, nil
	}
}

func toChunkResults(hits []domain.ScoredChunk) []ChunkResult {
	out := make([]ChunkResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, ChunkResult{
			PaperID: h.PaperID,
			Source:  h.Source,
			Page:    h.Page,
			Score:   h.Score,
			Text:    h.Text,
		})
	}
	return out
}
