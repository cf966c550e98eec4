// Package llm wraps hosted chat models behind a single-prompt interface.
package llm

import "context"

// DefaultChatModel is the chat model used when none is configured.
const DefaultChatModel = "gpt-3.5-turbo"

// LanguageModel completes a fully formatted prompt.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
