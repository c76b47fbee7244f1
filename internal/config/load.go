package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/localrivet/configurator"
)

// Load layers defaults, the JSON file at path and LATENTFS_* environment
// variables, then validates the result. A missing file is not an error. An
// empty path or the default filename is searched for upwards from the
// working directory.
func Load(path string) (*Config, error) {
	// The process logger does not exist yet, and stdout belongs to the MCP
	// stdio transport.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if path == "" {
		path = DefaultConfigFilename
	}
	if path == DefaultConfigFilename {
		if found, err := configurator.FindConfigFile(path); err == nil {
			path = found
		}
	}

	loader := configurator.New(log).WithProvider(configurator.NewDefaultProvider())

	switch _, err := os.Stat(path); {
	case err == nil:
		log.Info("Loading configuration", "path", path)
		loader = loader.WithProvider(configurator.NewFileProvider(path))
	case errors.Is(err, fs.ErrNotExist):
		log.Info("Config file not found, using defaults and environment", "path", path)
	default:
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	cfg := NewConfig()
	err := loader.
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator()).
		Load(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.path = path
	return cfg, nil
}

// SaveToFile writes the configuration as JSON, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	c.path = path
	return nil
}
