package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	googleAPIURL       = "https://generativelanguage.googleapis.com/v1beta/models"
	googleDefaultModel = "gemini-1.5-flash"
)

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type googleRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GoogleProvider labels groups with the Gemini generateContent endpoint.
type GoogleProvider struct {
	Config
	client *http.Client
}

func NewGoogleProvider(config Config) *GoogleProvider {
	return &GoogleProvider{Config: config, client: newHTTPClient()}
}

func (p *GoogleProvider) Name() string { return ProviderGoogle }

func (p *GoogleProvider) Label(ctx context.Context, texts []string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("google API key not provided")
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		orDefault(p.BaseURL, googleAPIURL),
		url.PathEscape(orDefault(p.ModelID, googleDefaultModel)),
		url.QueryEscape(p.APIKey))

	var out googleResponse
	status, err := postJSON(ctx, p.client, endpoint, nil, googleRequest{
		Contents:         []googleContent{{Role: "user", Parts: []googlePart{{Text: BuildPrompt(texts)}}}},
		GenerationConfig: googleGenerationConfig{MaxOutputTokens: DefaultMaxTokens},
	}, &out)
	switch {
	case err != nil:
		return "", fmt.Errorf("google: %w", err)
	case out.Error != nil:
		return "", fmt.Errorf("google API error: %s: %s", out.Error.Status, out.Error.Message)
	case status != http.StatusOK:
		return "", fmt.Errorf("google API returned status %d", status)
	case len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0:
		return "", fmt.Errorf("google: no candidates in response")
	}
	return cleanLabel(ProviderGoogle, out.Candidates[0].Content.Parts[0].Text)
}
