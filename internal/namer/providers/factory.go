package providers

import (
	"fmt"
	"slices"
	"sort"
)

var constructors = map[string]func(Config) LLMProvider{
	ProviderAnthropic: func(c Config) LLMProvider { return NewAnthropicProvider(c) },
	ProviderOpenAI:    func(c Config) LLMProvider { return NewOpenAIProvider(c) },
	ProviderGoogle:    func(c Config) LLMProvider { return NewGoogleProvider(c) },
}

// New builds the named provider.
func New(name string, config Config) (LLMProvider, error) {
	build, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return build(config), nil
}

// Chain builds every known provider in configs that has an API key. Names in
// preference come first, in that order; the rest follow sorted by name.
func Chain(configs map[string]Config, preference []string) []LLMProvider {
	rest := make([]string, 0, len(configs))
	for name := range configs {
		if !slices.Contains(preference, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	var chain []LLMProvider
	seen := map[string]bool{}
	for _, name := range append(slices.Clone(preference), rest...) {
		cfg, ok := configs[name]
		if seen[name] || !ok || cfg.APIKey == "" {
			continue
		}
		seen[name] = true
		if p, err := New(name, cfg); err == nil {
			chain = append(chain, p)
		}
	}
	return chain
}
