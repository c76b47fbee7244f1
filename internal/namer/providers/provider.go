// Package providers contains the LLM backends the AI namer can ask for a
// short group label.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// Provider constants
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"

	// Default settings
	DefaultTimeout        = 30 * time.Second
	DefaultMaxInputLength = 8000
	// DefaultMaxTokens is the completion budget for a 2-3 word label.
	DefaultMaxTokens = 20
	// PromptTexts is how many member texts are shown to the model.
	PromptTexts = 3
)

// LLMProvider defines the interface for different LLM service providers
type LLMProvider interface {
	// Label asks the model for a short category name for texts. The returned
	// string is the raw model output.
	Label(ctx context.Context, texts []string) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds common configuration for LLM providers
type Config struct {
	APIKey  string
	ModelID string
	// BaseURL overrides the provider endpoint. Tests point it at httptest.
	BaseURL string
}

// BuildPrompt renders the labeling prompt from the first PromptTexts texts.
// The combined input is capped at DefaultMaxInputLength bytes.
func BuildPrompt(texts []string) string {
	if len(texts) > PromptTexts {
		texts = texts[:PromptTexts]
	}
	combined := strings.Join(texts, "\n\n")
	if len(combined) > DefaultMaxInputLength {
		combined = combined[:DefaultMaxInputLength]
	}
	return fmt.Sprintf("Based on these documents, suggest a concise 2-3 word category name:\n\n%s\n\nCategory name:", combined)
}

// firstLine trims model output down to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return strings.Trim(line, `"'.,`)
		}
	}
	return ""
}
