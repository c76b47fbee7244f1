package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Store.Provider != DefaultStoreProvider {
		t.Errorf("Expected store provider %q, got %q", DefaultStoreProvider, cfg.Store.Provider)
	}
	if cfg.Grouping.TargetGroups != 5 || cfg.Grouping.MaxIterations != 300 {
		t.Errorf("Unexpected grouping defaults: %+v", cfg.Grouping)
	}
	if cfg.Grouping.FallbackLabels {
		t.Error("Fallback labels should be off by default")
	}
	if cfg.Server.HTTPAddr != ":8000" {
		t.Errorf("Expected default HTTP address :8000, got %q", cfg.Server.HTTPAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}

	window, err := cfg.DebounceWindow()
	if err != nil || window != 2*time.Second {
		t.Errorf("Expected 2s debounce window, got %v (%v)", window, err)
	}
	ttl, err := cfg.CacheTTL()
	if err != nil || ttl != 24*time.Hour {
		t.Errorf("Expected 24h cache TTL, got %v (%v)", ttl, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown store", func(c *Config) { c.Store.Provider = "postgres" }, "store.provider"},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "cohere" }, "embedder.provider"},
		{"alpha too large", func(c *Config) { c.Grouping.Alpha = 1.5 }, "grouping.alpha"},
		{"negative alpha", func(c *Config) { c.Grouping.Alpha = -0.1 }, "grouping.alpha"},
		{"bad window", func(c *Config) { c.Grouping.DebounceWindow = "soon" }, "grouping.debounce_window"},
		{"negative window", func(c *Config) { c.Grouping.DebounceWindow = "-1s" }, "grouping.debounce_window"},
		{"unknown llm", func(c *Config) {
			c.Namer.Provider = "ai"
			c.Namer.LLMProvider = "xai"
		}, "namer.llm_provider"},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }, "store.sqlite_path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"alpha bounds are inclusive", func(c *Config) { c.Grouping.Alpha = 1 }, ""},
		{"empty window uses default", func(c *Config) { c.Grouping.DebounceWindow = "" }, ""},
		{"badger needs no sqlite path", func(c *Config) {
			c.Store.Provider = "badger"
			c.Store.SQLitePath = ""
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error mentioning %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Missing file should fall back to defaults, got %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Expected config path %q, got %q", path, cfg.Path())
	}
	if cfg.Grouping.TargetGroups != DefaultTargetGroups {
		t.Errorf("Expected default target groups, got %d", cfg.Grouping.TargetGroups)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFilename)

	cfg := NewConfig()
	cfg.Store.Provider = "badger"
	cfg.Grouping.TargetGroups = 7
	cfg.Grouping.Alpha = 0.5
	cfg.Grouping.FallbackLabels = true
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Expected Path to follow the save, got %q", cfg.Path())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Store.Provider != "badger" {
		t.Errorf("Expected badger provider, got %q", loaded.Store.Provider)
	}
	if loaded.Grouping.TargetGroups != 7 {
		t.Errorf("Expected 7 target groups, got %d", loaded.Grouping.TargetGroups)
	}
	if loaded.Grouping.Alpha != 0.5 {
		t.Errorf("Expected alpha 0.5, got %v", loaded.Grouping.Alpha)
	}
	if !loaded.Grouping.FallbackLabels {
		t.Error("Expected fallback labels to round-trip")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	cfg := NewConfig()
	cfg.Grouping.Alpha = 3
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected invalid alpha to be rejected")
	}
}
