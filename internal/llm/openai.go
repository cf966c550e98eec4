package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIChat sends the prompt as a single user message to the chat
// completions API.
type OpenAIChat struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewOpenAIChat creates a chat model on an existing OpenAI client.
func NewOpenAIChat(client *openai.Client, model string, temperature float64) *OpenAIChat {
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIChat{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

// Generate returns the content of the first choice verbatim.
func (c *OpenAIChat) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
