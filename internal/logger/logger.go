// Package logger builds the process-wide structured logger for latentfs.
package logger

import (
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// LogFormat defines how log records are rendered
type LogFormat int

// Log format constants
const (
	TEXT LogFormat = iota
	JSON
)

// ServiceName is the value of the default "service" tag.
const ServiceName = "latentfs"

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      LogFormat
	Output      io.Writer
	DefaultTags map[string]interface{}
	// AddSource includes file:line of the call site.
	AddSource bool
}

// DefaultConfig returns a default logger configuration. Output goes to
// stderr so stdout stays free for the MCP stdio transport.
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": ServiceName},
	}
}

// New creates a new logger with the given configuration
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level, AddSource: config.AddSource}
	var handler slog.Handler
	if config.Format == JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	if len(config.DefaultTags) > 0 {
		args := make([]any, 0, len(config.DefaultTags)*2)
		for _, k := range slices.Sorted(maps.Keys(config.DefaultTags)) {
			args = append(args, k, config.DefaultTags[k])
		}
		l = l.With(args...)
	}
	return l
}

// FromSettings builds a logger from the level and format strings found in
// configuration files.
func FromSettings(level, format string, out io.Writer) *slog.Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.Format = ParseFormat(format)
	if out != nil {
		cfg.Output = out
	}
	return New(cfg)
}

// ParseLevel converts a string level to a slog.Level. Unknown values map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat converts "json" to JSON; anything else is TEXT.
func ParseFormat(format string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return JSON
	}
	return TEXT
}

// WithComponent tags l with the subsystem that logs through it.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = GetDefaultLogger()
	}
	return l.With("component", component)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(DefaultConfig())
)

// SetDefaultLogger sets the package default logger and slog's default.
func SetDefaultLogger(l *slog.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l)
}

// GetDefaultLogger returns the package default logger
func GetDefaultLogger() *slog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLogger returns the default logger tagged with a component name
func GetLogger(name string) *slog.Logger {
	return WithComponent(GetDefaultLogger(), name)
}
