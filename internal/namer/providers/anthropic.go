package providers

import (
	"context"
	"fmt"
	"net/http"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicDefaultModel = "claude-3-haiku-20240307"
	anthropicVersion      = "2023-06-01"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnthropicProvider labels groups with the Anthropic Messages API.
type AnthropicProvider struct {
	Config
	client *http.Client
}

func NewAnthropicProvider(config Config) *AnthropicProvider {
	return &AnthropicProvider{Config: config, client: newHTTPClient()}
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

func (p *AnthropicProvider) Label(ctx context.Context, texts []string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("anthropic API key not provided")
	}

	header := http.Header{}
	header.Set("X-API-Key", p.APIKey)
	header.Set("Anthropic-Version", anthropicVersion)

	var out anthropicResponse
	status, err := postJSON(ctx, p.client, orDefault(p.BaseURL, anthropicAPIURL), header, anthropicRequest{
		Model:     orDefault(p.ModelID, anthropicDefaultModel),
		Messages:  []anthropicMessage{{Role: "user", Content: BuildPrompt(texts)}},
		MaxTokens: DefaultMaxTokens,
	}, &out)
	switch {
	case err != nil:
		return "", fmt.Errorf("anthropic: %w", err)
	case out.Error != nil:
		return "", fmt.Errorf("anthropic API error: %s: %s", out.Error.Type, out.Error.Message)
	case status != http.StatusOK:
		return "", fmt.Errorf("anthropic API returned status %d", status)
	case len(out.Content) == 0:
		return "", fmt.Errorf("anthropic: no content in response")
	}
	return cleanLabel(ProviderAnthropic, out.Content[0].Text)
}
