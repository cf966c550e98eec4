package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainChat generates through langchaingo's OpenAI-compatible client.
type LangchainChat struct {
	llm         llms.Model
	temperature float64
}

// NewLangchainChat creates a chat model for any OpenAI-compatible endpoint.
func NewLangchainChat(apiKey, baseURL, model string, temperature float64) (*LangchainChat, error) {
	if model == "" {
		model = DefaultChatModel
	}

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return &LangchainChat{llm: client, temperature: temperature}, nil
}

// Generate completes prompt as a single human message.
func (c *LangchainChat) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return out, nil
}
