// Package latentfs organizes free-form text items into labeled semantic
// folders and serves them over MCP and HTTP.
package latentfs

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/localrivet/latentfs/internal/config"
	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/itemstore"
	"github.com/localrivet/latentfs/internal/namer"
	"github.com/localrivet/latentfs/internal/organizer"
	"github.com/localrivet/latentfs/internal/seed"
	"github.com/localrivet/latentfs/internal/server"
	"github.com/localrivet/latentfs/internal/telemetry"
	"github.com/localrivet/latentfs/internal/vector"
)

// Config represents the configuration for the latentfs service.
type Config = config.Config

// Components are the wired parts of the service.
type Components struct {
	Store     itemstore.ItemStore
	Embedder  vector.Embedder
	Namer     namer.Namer
	Organizer *organizer.Organizer
	Metrics   *telemetry.MetricsCollector
}

// Close releases the store.
func (c *Components) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// Server represents the latentfs service.
type Server struct {
	config     *config.Config
	components *Components
	mcp        *server.MCPToolServer
	http       *server.HTTPServer
	logger     *slog.Logger
	stopOnce   sync.Once
	stopErr    error
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.
}

// NewServer creates a latentfs Server with the given options. Both the MCP
// and HTTP surfaces are initialized; Start and StartHTTP choose which runs.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error

	switch {
	case opts.Config != nil:
		cfg = opts.Config
		logger.Info("Using provided Config object for server initialization")
	case opts.ConfigPath != "":
		logger.Info("Loading configuration for server initialization", "path", opts.ConfigPath)
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			logger.Error("Failed to load configuration from path", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "Failed to load configuration from path: "+opts.ConfigPath)
		}
	default:
		logger.Warn("No Config object or ConfigPath provided, using default configuration for server initialization")
		cfg = DefaultConfig()
	}

	comps, err := CreateComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to create components during server initialization", "error", err)
		return nil, err
	}

	if cfg.Store.SeedOnEmpty {
		if err := SeedIfEmpty(context.Background(), comps.Organizer, logger); err != nil {
			comps.Close()
			return nil, err
		}
	}

	serverOpts := []server.Option{server.WithLogger(logger)}
	if ai, ok := comps.Namer.(*namer.AINamer); ok {
		serverOpts = append(serverOpts, server.WithNamerHealth(func(ctx context.Context) (*namer.HealthReport, error) {
			return namer.CreateHealthReport(ctx, ai)
		}))
	}

	logger.Info("Initializing MCP tool server component")
	mcp := server.NewMCPToolServer(comps.Organizer, serverOpts...)
	if err := mcp.Initialize(); err != nil {
		comps.Close()
		logger.Error("Failed to initialize MCP tool server component", "error", err)
		return nil, errortypes.ConfigError(err, "Failed to initialize MCP tool server component")
	}

	httpSrv := server.NewHTTPServer(cfg.Server.HTTPAddr, comps.Organizer, serverOpts...)
	if err := httpSrv.Initialize(); err != nil {
		comps.Close()
		logger.Error("Failed to initialize HTTP server component", "error", err)
		return nil, errortypes.ConfigError(err, "Failed to initialize HTTP server component")
	}

	logger.Info("latentfs server successfully initialized")
	return &Server{
		config:     cfg,
		components: comps,
		mcp:        mcp,
		http:       httpSrv,
		logger:     logger,
	}, nil
}

// DefaultConfig returns the default configuration for the latentfs service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// Start serves MCP over stdio. It blocks until stdin closes.
func (s *Server) Start() error {
	s.logger.Info("Starting latentfs MCP service")
	return s.mcp.Start()
}

// StartHTTP serves the HTTP API. It blocks until Stop is called.
func (s *Server) StartHTTP() error {
	s.logger.Info("Starting latentfs HTTP service", "addr", s.config.Server.HTTPAddr)
	return s.http.Start()
}

// Stop shuts down both surfaces and closes the store. It is safe to call
// more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping latentfs service")
		if err := s.mcp.Stop(); err != nil {
			s.logger.Error("Error stopping MCP tool server", "error", err)
			s.stopErr = err
		}
		if err := s.http.Stop(); err != nil {
			s.logger.Error("Error stopping HTTP server", "error", err)
			s.stopErr = err
		}

		s.logger.Info("Closing store")
		if err := s.components.Close(); err != nil {
			s.logger.Error("Failed to close store", "error", err)
			s.stopErr = err
			return
		}
		s.logger.Info("latentfs service stopped")
	})
	return s.stopErr
}

// Organizer returns the organizer behind both surfaces.
func (s *Server) Organizer() *organizer.Organizer {
	return s.components.Organizer
}

// Config returns the resolved configuration.
func (s *Server) Config() *Config {
	return s.config
}

// HTTPHandler returns the routed HTTP API handler.
func (s *Server) HTTPHandler() http.Handler {
	return s.http.Handler()
}

// CreateComponents creates and initializes the store, embedder, namer and
// organizer without creating a server. This is what the CLI uses for one-off
// commands. The caller owns the returned store.
func CreateComponents(cfg *Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
		logger.Debug("CreateComponents called with nil logger, defaulting to slog.Default()")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		return nil, errortypes.ConfigError(err, "invalid configuration")
	}

	// Both durations were checked by Validate.
	window, _ := cfg.DebounceWindow()
	cacheTTL, _ := cfg.CacheTTL()

	store, err := createStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	emb, err := createEmbedder(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	metrics := telemetry.NewMetricsCollector()
	nm := createNamer(cfg, cacheTTL, metrics, logger)

	org, err := organizer.New(store, nm, emb,
		organizer.WithTargetGroups(cfg.Grouping.TargetGroups),
		organizer.WithMaxIterations(cfg.Grouping.MaxIterations),
		organizer.WithAlpha(cfg.Grouping.Alpha),
		organizer.WithDebounceWindow(window),
		organizer.WithNamingConcurrency(cfg.Grouping.NamingConcurrency),
		organizer.WithFallbackLabels(cfg.Grouping.FallbackLabels),
		organizer.WithLogger(logger),
		organizer.WithMetrics(metrics),
	)
	if err != nil {
		store.Close()
		logger.Error("Failed to create organizer", "error", err)
		return nil, err
	}

	logger.Info("Components successfully initialized via CreateComponents")
	return &Components{
		Store:     store,
		Embedder:  emb,
		Namer:     nm,
		Organizer: org,
		Metrics:   metrics,
	}, nil
}

func createStore(cfg *Config, logger *slog.Logger) (itemstore.ItemStore, error) {
	var (
		store itemstore.ItemStore
		path  string
	)
	switch cfg.Store.Provider {
	case itemstore.ProviderBadger:
		store = itemstore.NewBadgerStore(itemstore.WithBadgerLogger(logger))
		path = cfg.Store.BadgerDir
	default:
		s, err := itemstore.New(cfg.Store.Provider)
		if err != nil {
			return nil, errortypes.ConfigError(err, "Failed to create item store")
		}
		store = s
		path = cfg.Store.SQLitePath
	}

	logger.Info("Initializing item store", "provider", cfg.Store.Provider, "path", path)
	if err := store.Initialize(path); err != nil {
		logger.Error("Failed to initialize item store", "provider", cfg.Store.Provider, "path", path, "error", err)
		return nil, errortypes.DatabaseError(err, "Failed to initialize item store")
	}
	return store, nil
}

func createEmbedder(cfg *Config, logger *slog.Logger) (vector.Embedder, error) {
	dimensions := cfg.Embedder.Dimensions
	if dimensions <= 0 {
		dimensions = vector.DefaultEmbeddingDimensions
	}

	logger.Info("Initializing embedder", "provider", cfg.Embedder.Provider, "dimensions", dimensions)
	var emb vector.Embedder
	switch cfg.Embedder.Provider {
	case "openai":
		emb = vector.NewOpenAIEmbedder(vector.OpenAIConfig{
			APIKey:     cfg.Embedder.ApiKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: dimensions,
		})
	case "mock", "":
		emb = vector.NewMockEmbedder(dimensions)
	default:
		logger.Warn("Unknown embedder provider, using mock embedder", "provider", cfg.Embedder.Provider)
		emb = vector.NewMockEmbedder(dimensions)
	}

	if err := emb.Initialize(); err != nil {
		logger.Error("Failed to initialize embedder", "error", err)
		return nil, errortypes.ConfigError(err, "Failed to initialize embedder")
	}
	return emb, nil
}

// createNamer never fails: an AI namer that cannot initialize is replaced by
// the keyword namer.
func createNamer(cfg *Config, cacheTTL time.Duration, metrics *telemetry.MetricsCollector, logger *slog.Logger) namer.Namer {
	logger.Info("Initializing namer", "provider", cfg.Namer.Provider)
	if cfg.Namer.Provider != "ai" {
		return namer.NewKeywordNamer()
	}

	ai := namer.NewAINamer(&namer.AINamerConfig{
		ProviderName:      cfg.Namer.LLMProvider,
		ModelID:           cfg.Namer.Model,
		APIKey:            cfg.Namer.ApiKey,
		CacheTTL:          cacheTTL,
		RequestsPerSecond: cfg.Namer.RequestsPerSecond,
		Logger:            logger.With("component", "namer"),
		Metrics:           metrics,
	})
	if err := ai.Initialize(); err != nil {
		logger.Warn("AI namer unavailable, using keyword namer", "error", err)
		return namer.NewKeywordNamer()
	}
	return ai
}

// SeedIfEmpty fills an empty store with the built-in sample corpus.
func SeedIfEmpty(ctx context.Context, org *organizer.Organizer, logger *slog.Logger) error {
	count, err := org.CountItems(ctx)
	if err != nil {
		logger.Error("Failed to count items before seeding", "error", err)
		return err
	}
	if count > 0 {
		logger.Debug("Store already has items, skipping seed", "count", count)
		return nil
	}

	ids, err := seed.Populate(ctx, org)
	if err != nil {
		logger.Error("Failed to seed store", "error", err)
		return err
	}
	logger.Info("Seeded empty store with sample corpus", "count", len(ids))
	return nil
}
