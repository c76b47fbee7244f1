// Package namer turns a group's representative texts into a short,
// human-readable folder label.
package namer

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultLabel is used when there is nothing to name.
	DefaultLabel = "Uncategorized"

	// maxLabelLength is the length above which a label is cut to its first
	// maxLabelWords words.
	maxLabelLength = 30
	maxLabelWords  = 3
)

// Namer defines the interface for labeling a group of texts.
type Namer interface {
	// Name returns a short label for texts. texts are ordered by relevance;
	// implementations may only look at the first few.
	Name(ctx context.Context, texts []string) (string, error)

	// Initialize sets up the namer with any required configuration.
	Initialize() error
}

// FallbackLabel is the label given to the group at zero-based index when its
// namer fails.
func FallbackLabel(index int) string {
	return fmt.Sprintf("Cluster %d", index+1)
}

// CleanLabel collapses whitespace, capitalizes every word and keeps only the
// first three words of an overlong label.
func CleanLabel(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	label := strings.Join(words, " ")
	if utf8.RuneCountInString(label) > maxLabelLength && len(words) > maxLabelWords {
		label = strings.Join(words[:maxLabelWords], " ")
	}
	if label == "" {
		return DefaultLabel
	}
	return label
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError && size <= 1 {
		return strings.ToLower(word)
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
