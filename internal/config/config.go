// Package config holds the latentfs settings and loads them from defaults, a
// JSON file and LATENTFS_* environment variables, in that order.
package config

// StoreConfig selects and configures the item store.
type StoreConfig struct {
	// Provider is the store backend: "sqlite", "badger" or "memory".
	Provider   string `json:"provider" env:"STORE_PROVIDER" validate:"required"`
	SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH"`
	// BadgerDir is the Badger data directory. ":memory:" keeps it in RAM.
	BadgerDir string `json:"badger_dir" env:"BADGER_DIR"`
	// SeedOnEmpty fills an empty store with the sample corpus at startup.
	SeedOnEmpty bool `json:"seed_on_empty" env:"SEED_ON_EMPTY"`
}

// EmbedderConfig picks the text embedder.
type EmbedderConfig struct {
	// Provider is "mock" or "openai".
	Provider   string `json:"provider" env:"EMBEDDER_PROVIDER"`
	Dimensions int    `json:"dimensions" env:"EMBEDDER_DIMENSIONS" validate:"min:1"`
	ApiKey     string `json:"api_key" env:"EMBEDDER_API_KEY"`
	Model      string `json:"model" env:"EMBEDDER_MODEL"`
	// BaseURL points the provider at an OpenAI-compatible endpoint.
	BaseURL string `json:"base_url" env:"EMBEDDER_BASE_URL"`
}

// NamerConfig controls group labeling.
type NamerConfig struct {
	// Provider is "keyword" or "ai".
	Provider string `json:"provider" env:"NAMER_PROVIDER"`
	// LLMProvider is the primary model vendor for the ai namer.
	LLMProvider string `json:"llm_provider" env:"NAMER_LLM_PROVIDER"`
	ApiKey      string `json:"api_key" env:"NAMER_API_KEY"`
	Model       string `json:"model" env:"NAMER_MODEL"`
	// RequestsPerSecond caps LLM calls; zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" env:"NAMER_REQUESTS_PER_SECOND"`
	// CacheTTL is how long a label stays cached, e.g. "24h".
	CacheTTL string `json:"cache_ttl" env:"NAMER_CACHE_TTL"`
}

// GroupingConfig tunes partitioning, nudging and the rebuild gate.
type GroupingConfig struct {
	TargetGroups      int     `json:"target_groups" env:"TARGET_GROUPS" validate:"min:1"`
	MaxIterations     int     `json:"max_iterations" env:"MAX_ITERATIONS" validate:"min:1"`
	Alpha             float64 `json:"alpha" env:"ALPHA"`
	DebounceWindow    string  `json:"debounce_window" env:"DEBOUNCE_WINDOW"`
	NamingConcurrency int     `json:"naming_concurrency" env:"NAMING_CONCURRENCY" validate:"min:1"`
	// FallbackLabels keeps groups whose namer call failed as "Cluster N".
	FallbackLabels bool `json:"fallback_labels" env:"FALLBACK_LABELS"`
}

type ServerConfig struct {
	HTTPAddr string `json:"http_addr" env:"HTTP_ADDR"`
}

type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level" env:"LOG_LEVEL" validate:"required"`
	// Format is "text" or "json".
	Format string `json:"format" env:"LOG_FORMAT"`
}

// Config represents the latentfs configuration
type Config struct {
	Store    StoreConfig    `json:"store"`
	Embedder EmbedderConfig `json:"embedder"`
	Namer    NamerConfig    `json:"namer"`
	Grouping GroupingConfig `json:"grouping"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`

	// path is the file the config was loaded from or last saved to.
	path string
}

// Default configuration values
const (
	DefaultConfigFilename    = ".latentfsconfig"
	DefaultEnvPrefix         = "LATENTFS"
	DefaultStoreProvider     = "sqlite"
	DefaultSQLitePath        = ".latentfs.db"
	DefaultBadgerDir         = ".latentfs.badger"
	DefaultEmbedderProvider  = "mock"
	DefaultEmbedderDims      = 384
	DefaultNamerProvider     = "keyword"
	DefaultLLMProvider       = "anthropic"
	DefaultCacheTTL          = "24h"
	DefaultTargetGroups      = 5
	DefaultMaxIterations     = 300
	DefaultAlpha             = 0.3
	DefaultDebounceWindow    = "2s"
	DefaultNamingConcurrency = 4
	DefaultHTTPAddr          = ":8000"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Provider:   DefaultStoreProvider,
			SQLitePath: DefaultSQLitePath,
			BadgerDir:  DefaultBadgerDir,
		},
		Embedder: EmbedderConfig{
			Provider:   DefaultEmbedderProvider,
			Dimensions: DefaultEmbedderDims,
		},
		Namer: NamerConfig{
			Provider:    DefaultNamerProvider,
			LLMProvider: DefaultLLMProvider,
			CacheTTL:    DefaultCacheTTL,
		},
		Grouping: GroupingConfig{
			TargetGroups:      DefaultTargetGroups,
			MaxIterations:     DefaultMaxIterations,
			Alpha:             DefaultAlpha,
			DebounceWindow:    DefaultDebounceWindow,
			NamingConcurrency: DefaultNamingConcurrency,
		},
		Server:  ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Path is the file the configuration was loaded from or saved to. It is set
// even when a missing file meant defaults were used.
func (c *Config) Path() string {
	return c.path
}
