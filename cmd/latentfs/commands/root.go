package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/localrivet/latentfs"
	"github.com/localrivet/latentfs/internal/config"
	"github.com/localrivet/latentfs/internal/logger"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "latentfs",
	Short: "Organize text into labeled semantic folders",
	Long: `latentfs - group free-form text items into semantic folders.

Items are embedded, partitioned into at most k folders, and each folder
is labeled from its most central items. Moving an item into another folder
nudges its vector toward that folder and rebuilds the folders.

Configuration is read from .latentfsconfig (JSON) and LATENTFS_* environment
variables. Use 'latentfs config init' to write a default file.

Examples:
  # Serve MCP tools over stdio
  latentfs serve

  # Serve the HTTP API
  latentfs serve --http --addr :8000

  # Add items and look at the folders
  latentfs ingest "sourdough starter feeding" "docker container images"
  latentfs groups`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. It always writes to stderr so stdout
// stays free for command output and the MCP transport.
func newLogger(cfg *config.Config) *slog.Logger {
	l := logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	logger.SetDefaultLogger(l)
	return l
}

// openComponents loads config and wires the components for a one-off command.
func openComponents() (*latentfs.Components, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := newLogger(cfg)

	comps, err := latentfs.CreateComponents(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return comps, cfg, log, nil
}
