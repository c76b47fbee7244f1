package namer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/localrivet/latentfs/internal/namer/providers"
	"github.com/localrivet/latentfs/internal/telemetry"
)

const (
	// Default settings
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 2
	DefaultRetryDelay        = time.Second
	DefaultCacheCapacity     = 1000
	DefaultCacheTTL          = 24 * time.Hour
	DefaultRequestsPerSecond = 2.0

	healthCheckTimeout = 5 * time.Second
)

// Errors
var (
	ErrConfigError = errors.New("configuration error")
)

// FallbackProvider names a provider tried after the primary one fails.
type FallbackProvider struct {
	Name    string
	ModelID string
	APIKey  string
	BaseURL string
}

// AINamerConfig holds configuration for the AINamer
type AINamerConfig struct {
	ProviderName string
	ModelID      string
	APIKey       string
	BaseURL      string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	CacheCapacity int
	CacheTTL      time.Duration

	// RequestsPerSecond bounds calls across all providers. Zero or less
	// means unlimited.
	RequestsPerSecond float64

	FallbackProviders []FallbackProvider

	Logger  *slog.Logger
	Metrics *telemetry.MetricsCollector
}

// AINamer asks an LLM provider chain for group labels. When every provider
// fails it falls back to the keyword namer, so Name never returns an error.
type AINamer struct {
	config            AINamerConfig
	provider          providers.LLMProvider
	fallbackProviders []providers.LLMProvider
	initialized       bool

	fallback *KeywordNamer
	cache    *labelCache
	limiter  *rate.Limiter
	metrics  *telemetry.MetricsCollector
	logger   *slog.Logger
	mu       sync.RWMutex
}

// labelCache provides thread-safe caching for labels
type labelCache struct {
	items    map[string]cachedLabel
	capacity int
	ttl      time.Duration
	seq      uint64
	mu       sync.RWMutex
}

type cachedLabel struct {
	label    string
	expireAt time.Time
	seq      uint64
}

// NewAINamer creates a new AINamer. Providers are created on Initialize.
func NewAINamer(config *AINamerConfig) *AINamer {
	if config == nil {
		config = &AINamerConfig{}
	}
	cfg := *config

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewMetricsCollector()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &AINamer{
		config:   cfg,
		fallback: NewKeywordNamer(),
		cache: &labelCache{
			items:    make(map[string]cachedLabel),
			capacity: cfg.CacheCapacity,
			ttl:      cfg.CacheTTL,
		},
		limiter: rate.NewLimiter(limit, 1),
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "namer"),
	}
}

// Initialize creates the primary provider and the fallback chain.
func (n *AINamer) Initialize() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return nil
	}

	if n.provider == nil {
		if n.config.ProviderName == "" {
			n.config.ProviderName = providers.ProviderAnthropic
		}
		if n.config.APIKey == "" {
			return fmt.Errorf("%w: missing API key for primary provider %s", ErrConfigError, n.config.ProviderName)
		}

		configs := map[string]providers.Config{
			n.config.ProviderName: {APIKey: n.config.APIKey, ModelID: n.config.ModelID, BaseURL: n.config.BaseURL},
		}
		var preference []string
		for _, fb := range n.config.FallbackProviders {
			if fb.Name == n.config.ProviderName {
				continue
			}
			configs[fb.Name] = providers.Config{APIKey: fb.APIKey, ModelID: fb.ModelID, BaseURL: fb.BaseURL}
			preference = append(preference, fb.Name)
		}

		primary, err := providers.New(n.config.ProviderName, configs[n.config.ProviderName])
		if err != nil {
			return fmt.Errorf("failed to create primary provider: %w", err)
		}
		n.provider = primary

		for _, p := range providers.Chain(configs, preference) {
			if p.Name() != primary.Name() {
				n.fallbackProviders = append(n.fallbackProviders, p)
			}
		}
	}

	n.initialized = true
	return nil
}

// Name returns an LLM-generated label for texts, or the keyword label when
// no provider succeeds.
func (n *AINamer) Name(ctx context.Context, texts []string) (string, error) {
	start := time.Now()
	defer func() {
		n.metrics.RecordTimer(telemetry.MetricNamingTime, time.Since(start))
	}()

	if len(texts) == 0 {
		return DefaultLabel, nil
	}
	if len(texts) > providers.PromptTexts {
		texts = texts[:providers.PromptTexts]
	}

	if err := n.Initialize(); err != nil {
		n.logger.Warn("AI namer unavailable, using keyword labels", "error", err)
		return n.keywordLabel(ctx, texts)
	}

	key := cacheKey(texts)
	if label, found := n.cache.get(key); found {
		n.metrics.IncrementCounter(telemetry.MetricCacheHits, 1)
		return label, nil
	}
	n.metrics.IncrementCounter(telemetry.MetricCacheMisses, 1)

	n.mu.RLock()
	chain := append([]providers.LLMProvider{n.provider}, n.fallbackProviders...)
	n.mu.RUnlock()

	for i, p := range chain {
		if i > 0 {
			n.metrics.IncrementCounter(telemetry.MetricFallbackAttempts, 1)
		}
		if metric := callMetric(p.Name()); metric != "" {
			n.metrics.IncrementCounter(metric, 1)
		}

		callStart := time.Now()
		label, err := n.labelWithRetries(ctx, p, texts)
		if err == nil {
			n.metrics.IncrementCounter(telemetry.MetricAPICallsSuccess, 1)
			if i > 0 {
				n.metrics.IncrementCounter(telemetry.MetricFallbackSuccess, 1)
			}
			if metric := responseTimeMetric(p.Name()); metric != "" {
				n.metrics.RecordTimer(metric, time.Since(callStart))
			}
			n.cache.put(key, label)
			n.metrics.SetGauge(telemetry.MetricCacheSize, float64(n.cache.len()))
			return label, nil
		}

		n.metrics.IncrementCounter(telemetry.MetricAPICallsFailure, 1)
		n.logger.Warn("Provider failed to name group", "provider", p.Name(), "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return n.keywordLabel(ctx, texts)
}

func (n *AINamer) keywordLabel(ctx context.Context, texts []string) (string, error) {
	n.metrics.IncrementCounter(telemetry.MetricKeywordFallbacks, 1)
	return n.fallback.Name(ctx, texts)
}

// labelWithRetries calls p up to MaxRetries+1 times with a linear backoff.
// Every attempt waits for the rate limiter and gets its own timeout.
func (n *AINamer) labelWithRetries(ctx context.Context, p providers.LLMProvider, texts []string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= n.config.MaxRetries; attempt++ {
		if attempt > 0 {
			n.metrics.IncrementCounter(telemetry.MetricRetryAttempts, 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(n.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := n.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		raw, err := p.Label(callCtx, texts)
		cancel()
		if err == nil {
			label := CleanLabel(raw)
			if label == DefaultLabel && strings.TrimSpace(raw) == "" {
				err = errors.New("provider returned an empty label")
			} else {
				if attempt > 0 {
					n.metrics.IncrementCounter(telemetry.MetricRetrySuccess, 1)
				}
				return label, nil
			}
		}
		lastErr = err
	}

	return "", lastErr
}

// GetMetrics returns the metrics collector for this namer
func (n *AINamer) GetMetrics() *telemetry.MetricsCollector {
	return n.metrics
}

// PrimaryProvider returns the name of the primary provider, or "" before a
// successful Initialize.
func (n *AINamer) PrimaryProvider() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.provider == nil {
		return ""
	}
	return n.provider.Name()
}

// CheckProviderHealth sends a tiny labeling request to every provider and
// reports which ones answered.
func (n *AINamer) CheckProviderHealth(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	if err := n.Initialize(); err != nil {
		return results
	}

	n.mu.RLock()
	chain := append([]providers.LLMProvider{n.provider}, n.fallbackProviders...)
	n.mu.RUnlock()

	probe := []string{"This is a brief health check for the LLM provider."}
	for _, p := range chain {
		name := p.Name()
		if _, checked := results[name]; checked {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		_, err := p.Label(callCtx, probe)
		cancel()

		results[name] = err == nil
		if metric := healthMetric(name); metric != "" {
			n.metrics.SetGauge(metric, boolToFloat64(results[name]))
		}
	}
	return results
}

func cacheKey(texts []string) string {
	hash := sha256.Sum256([]byte(strings.Join(texts, "\x00")))
	return hex.EncodeToString(hash[:])
}

func (c *labelCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if item, exists := c.items[key]; exists && time.Now().Before(item.expireAt) {
		return item.label, true
	}
	return "", false
}

func (c *labelCache) put(key, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.capacity {
		c.evict(now)
	}
	c.seq++
	c.items[key] = cachedLabel{label: label, expireAt: now.Add(c.ttl), seq: c.seq}
}

// evict drops expired entries, or the oldest entry when none are.
func (c *labelCache) evict(now time.Time) {
	var oldestKey string
	var oldest uint64
	for k, item := range c.items {
		if !now.Before(item.expireAt) {
			delete(c.items, k)
			continue
		}
		if oldestKey == "" || item.seq < oldest {
			oldestKey, oldest = k, item.seq
		}
	}
	if len(c.items) >= c.capacity && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *labelCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func callMetric(provider string) string {
	switch provider {
	case providers.ProviderAnthropic:
		return telemetry.MetricAPICallsAnthropic
	case providers.ProviderOpenAI:
		return telemetry.MetricAPICallsOpenAI
	case providers.ProviderGoogle:
		return telemetry.MetricAPICallsGoogle
	}
	return ""
}

func responseTimeMetric(provider string) string {
	switch provider {
	case providers.ProviderAnthropic:
		return telemetry.MetricResponseTimeAnthropic
	case providers.ProviderOpenAI:
		return telemetry.MetricResponseTimeOpenAI
	case providers.ProviderGoogle:
		return telemetry.MetricResponseTimeGoogle
	}
	return ""
}

func healthMetric(provider string) string {
	switch provider {
	case providers.ProviderAnthropic:
		return telemetry.MetricProviderHealthAnthropic
	case providers.ProviderOpenAI:
		return telemetry.MetricProviderHealthOpenAI
	case providers.ProviderGoogle:
		return telemetry.MetricProviderHealthGoogle
	}
	return ""
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
