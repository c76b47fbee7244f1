package namer

import (
	"context"
	"testing"
)

func TestKeywordNamer(t *testing.T) {
	n := NewKeywordNamer()
	if err := n.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{
			name:  "empty input",
			texts: nil,
			want:  "Uncategorized",
		},
		{
			name: "space theme",
			texts: []string{
				"The planet Mars has a thin atmosphere composed mainly of carbon dioxide.",
				"Jupiter is the largest planet in our solar system with many moons.",
				"The galaxy contains billions of stars and cosmic dust.",
			},
			want: "Space",
		},
		{
			name: "cooking theme",
			texts: []string{
				"This recipe requires flour, eggs, and sugar to make a delicious cake.",
				"The dish is best served with fresh ingredients from the kitchen.",
				"Cook the meal at 350 degrees for 30 minutes for perfect flavor.",
			},
			want: "Cooking",
		},
		{
			name: "technology theme",
			texts: []string{
				"The algorithm processes data efficiently using advanced programming techniques.",
				"Software development requires understanding of computer systems and APIs.",
				"The function returns a value after executing the code logic.",
			},
			want: "Technology",
		},
		{
			name: "keyword fallback",
			texts: []string{
				"The quick brown fox jumps over the lazy dog multiple times.",
				"Another sentence with the word fox appearing again.",
				"Yet another mention of the fox in this text.",
			},
			// fox x3, then another x2.
			want: "Fox Another",
		},
		{
			name:  "ties broken by first appearance",
			texts: []string{"violin cello violin cello flute"},
			want:  "Violin Cello",
		},
		{
			name:  "single keyword",
			texts: []string{"Glaciers, glaciers!"},
			want:  "Glaciers",
		},
		{
			name:  "only stop words and short tokens",
			texts: []string{"the and of to a 42"},
			want:  "Documents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Name(context.Background(), tt.texts)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectTheme(t *testing.T) {
	if got := detectTheme("planet star galaxy universe cosmic astronomy", "Generic"); got != "Space" {
		t.Errorf("Expected Space, got %q", got)
	}
	if got := detectTheme("recipe cook food ingredient dish meal kitchen", "Generic"); got != "Cooking" {
		t.Errorf("Expected Cooking, got %q", got)
	}
	if got := detectTheme("planet hello world", "Generic"); got != "Generic" {
		t.Errorf("Expected base name below threshold, got %q", got)
	}
}

func TestCleanLabel(t *testing.T) {
	tests := map[string]string{
		"  extra   spaces  ":                           "Extra Spaces",
		"lowercase words":                              "Lowercase Words",
		"SHOUTING label":                               "Shouting Label",
		"":                                             "Uncategorized",
		"   ":                                          "Uncategorized",
		"a very long label that keeps going and going": "A Very Long",
	}
	for in, want := range tests {
		if got := CleanLabel(in); got != want {
			t.Errorf("CleanLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFallbackLabel(t *testing.T) {
	if got := FallbackLabel(0); got != "Cluster 1" {
		t.Errorf("Expected 'Cluster 1', got %q", got)
	}
	if got := FallbackLabel(4); got != "Cluster 5" {
		t.Errorf("Expected 'Cluster 5', got %q", got)
	}
}
