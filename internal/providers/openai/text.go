package openai

import (
	"context"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"shortforge/internal/config"
	"shortforge/internal/retry"
)

// TextGenerator implements providers.TextGenerator with chat completions.
type TextGenerator struct {
	base
	model string
}

// NewTextGenerator builds a chat adapter from the [text] config section.
func NewTextGenerator(cfg config.Text, opts ...Option) *TextGenerator {
	return &TextGenerator{base: newBase(cfg.APIKeys, cfg.BaseURL, providerName, opts), model: strings.TrimSpace(cfg.Model)}
}

// Generate returns the first choice's content.
func (g *TextGenerator) Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	if model = strings.TrimSpace(model); model == "" {
		model = g.model
	}
	req := gopenai.ChatCompletionRequest{
		Model: model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	return invoke(ctx, g.base, "chat", func(ctx context.Context, client *gopenai.Client) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		for _, choice := range resp.Choices {
			if content := strings.TrimSpace(choice.Message.Content); content != "" {
				return content, nil
			}
		}
		return "", &retry.ProviderError{Provider: providerName, Operation: "chat", Message: "empty completion (temporarily unavailable)"}
	})
}
