package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	storeProviders    = []string{"sqlite", "badger", "memory"}
	embedderProviders = []string{"mock", "openai"}
	namerProviders    = []string{"keyword", "ai"}
	llmProviders      = []string{"anthropic", "openai", "google"}
	logLevels         = []string{"debug", "info", "warn", "error"}
	logFormats        = []string{"text", "json"}
)

// Validate checks the rules the struct tags cannot express. All violations
// are reported together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	oneOf := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			fail("%s: unknown value %q (want one of %v)", field, value, allowed)
		}
	}

	oneOf("store.provider", c.Store.Provider, storeProviders)
	oneOf("embedder.provider", c.Embedder.Provider, embedderProviders)
	oneOf("namer.provider", c.Namer.Provider, namerProviders)
	if c.Namer.Provider == "ai" {
		oneOf("namer.llm_provider", c.Namer.LLMProvider, llmProviders)
	}
	oneOf("logging.level", c.Logging.Level, logLevels)
	oneOf("logging.format", c.Logging.Format, logFormats)

	if a := c.Grouping.Alpha; a < 0 || a > 1 {
		fail("grouping.alpha: must be within [0, 1], got %v", a)
	}
	if c.Grouping.TargetGroups < 1 {
		fail("grouping.target_groups: must be positive, got %d", c.Grouping.TargetGroups)
	}
	if c.Store.Provider == "sqlite" && c.Store.SQLitePath == "" {
		fail("store.sqlite_path: required for the sqlite provider")
	}
	if c.Namer.RequestsPerSecond < 0 {
		fail("namer.requests_per_second: must not be negative, got %v", c.Namer.RequestsPerSecond)
	}
	for _, parse := range []func() (time.Duration, error){c.DebounceWindow, c.CacheTTL} {
		if _, err := parse(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DebounceWindow parses grouping.debounce_window. An empty value means the
// default window.
func (c *Config) DebounceWindow() (time.Duration, error) {
	return parseDuration("grouping.debounce_window", c.Grouping.DebounceWindow, DefaultDebounceWindow)
}

// CacheTTL parses namer.cache_ttl.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration("namer.cache_ttl", c.Namer.CacheTTL, DefaultCacheTTL)
}

func parseDuration(field, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %w", field, err)
	case d < 0:
		return 0, fmt.Errorf("%s: must not be negative, got %s", field, value)
	}
	return d, nil
}
