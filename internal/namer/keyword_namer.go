package namer

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// KeywordNamer labels groups from word frequencies. It needs no network and
// never fails, so it also serves as the final fallback of the AI namer.
type KeywordNamer struct{}

// NewKeywordNamer creates a new KeywordNamer instance.
func NewKeywordNamer() *KeywordNamer {
	return &KeywordNamer{}
}

// Initialize is a no-op.
func (n *KeywordNamer) Initialize() error {
	return nil
}

// NoKeywordsLabel is returned when the texts hold no usable words.
const NoKeywordsLabel = "Documents"

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = toSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "can",
	"her", "was", "one", "our", "out", "day", "get", "has", "him",
	"his", "how", "man", "new", "now", "old", "see", "two", "way",
	"who", "boy", "did", "its", "let", "put", "say", "she", "too",
	"use", "with", "this", "that", "from", "have", "they", "will",
	"what", "been", "more", "when", "your", "than", "into", "very",
	"some", "time", "about", "after", "could", "their", "would",
	"there", "these", "which", "other", "being", "where", "through",
)

// theme is a label that replaces the keyword label when enough of its
// keywords occur in the text.
type theme struct {
	label    string
	keywords []string
}

// themeThreshold is the minimum number of distinct keyword hits.
const themeThreshold = 3

// Earlier themes win ties.
var themes = []theme{
	{"Technology", []string{"code", "software", "programming", "computer", "algorithm", "function", "data", "system", "development", "api"}},
	{"Science", []string{"research", "study", "experiment", "theory", "scientific", "hypothesis", "analysis", "discovery", "physics", "chemistry"}},
	{"Space", []string{"space", "planet", "star", "galaxy", "universe", "cosmic", "astronomy", "orbit", "solar", "mars", "moon"}},
	{"Cooking", []string{"recipe", "cook", "food", "ingredient", "dish", "meal", "kitchen", "flavor", "taste", "cuisine"}},
	{"History", []string{"history", "historical", "ancient", "century", "war", "civilization", "empire", "dynasty", "era", "period"}},
	{"Finance", []string{"money", "financial", "investment", "market", "stock", "economy", "trading", "profit", "business", "revenue"}},
	{"Sports", []string{"sport", "game", "team", "player", "match", "score", "championship", "athlete", "competition", "tournament"}},
	{"Health", []string{"health", "medical", "disease", "treatment", "patient", "doctor", "medicine", "therapy", "diagnosis", "clinical"}},
}

// Name returns the two most frequent non-stop-words, capitalized, unless a
// theme is detected in the text.
func (n *KeywordNamer) Name(_ context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return DefaultLabel, nil
	}

	combined := strings.ToLower(strings.Join(texts, " "))
	top := topKeywords(combined, 2)
	if len(top) == 0 {
		return NoKeywordsLabel, nil
	}

	for i, w := range top {
		top[i] = capitalize(w)
	}
	return detectTheme(combined, strings.Join(top, " ")), nil
}

// topKeywords returns up to n words by descending count. Words seen first win
// ties.
func topKeywords(text string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// detectTheme returns the best-scoring theme label when it reaches the
// threshold, else base. Keywords match as substrings.
func detectTheme(text, base string) string {
	best, bestScore := "", 0
	for _, th := range themes {
		score := 0
		for _, kw := range th.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = th.label, score
		}
	}
	if bestScore >= themeThreshold {
		return best
	}
	return base
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
