package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiDefaultModel = "gpt-4o-mini"

// OpenAIProvider implements the LLMProvider interface with the OpenAI chat
// completions API. Any OpenAI-compatible endpoint works through BaseURL.
type OpenAIProvider struct {
	Config
	client *openai.Client
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(newHTTPClient()),
		// Retries are handled by the namer.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{Config: config, client: &client}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// Label implements the LLMProvider interface for OpenAI
func (p *OpenAIProvider) Label(ctx context.Context, texts []string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("openai API key not provided")
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: orDefault(p.ModelID, openaiDefaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(texts)),
		},
		MaxTokens: openai.Int(DefaultMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return cleanLabel(ProviderOpenAI, resp.Choices[0].Message.Content)
}
