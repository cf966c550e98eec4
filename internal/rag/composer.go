package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/index"
	"github.com/bull/ragademic/internal/llm"
)

// Answer is a model reply together with the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []domain.ScoredChunk
}

// Compose retrieves the k chunks most relevant to question, joins them in
// rank order with blank lines into the context slot and asks model. Any
// failure is reported as domain.ErrInference.
func Compose(ctx context.Context, retriever index.Retriever, model llm.LanguageModel, question string, tmpl PromptTemplate, k int) (*Answer, error) {
	hits, err := retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInference, "retrieve context", err)
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}

	prompt, err := tmpl.Format(strings.Join(texts, "\n\n"), question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInference, "build prompt", err)
	}

	text, err := model.Generate(ctx, prompt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInference, "generate answer", err)
	}

	return &Answer{Text: text, Sources: hits}, nil
}

// Composer binds a retriever, a model and a template for a session.
type Composer struct {
	retriever index.Retriever
	model     llm.LanguageModel
	tmpl      PromptTemplate
	k         int
}

// NewComposer creates a Composer using the default prompt.
func NewComposer(retriever index.Retriever, model llm.LanguageModel, k int) *Composer {
	if k <= 0 {
		k = index.DefaultTopK
	}
	return &Composer{
		retriever: retriever,
		model:     model,
		tmpl:      DefaultPrompt(),
		k:         k,
	}
}

// Answer answers one question.
func (c *Composer) Answer(ctx context.Context, question string) (*Answer, error) {
	if c.retriever == nil || c.model == nil {
		return nil, domain.WrapError(domain.ErrInference, "answer", fmt.Errorf("composer is not initialized"))
	}
	return Compose(ctx, c.retriever, c.model, question, c.tmpl, c.k)
}
