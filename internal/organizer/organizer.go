// Package organizer sequences the grouping core: it partitions the stored
// items, summarizes and labels each group, persists assignments, and turns a
// manual reassignment into a nudge followed by a gated rebuild.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/gate"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/nudge"
	"github.com/localrivet/latentfs/internal/partition"
	"github.com/localrivet/latentfs/internal/telemetry"
	"github.com/localrivet/latentfs/internal/util"
)

const (
	// DefaultTargetGroups is the k requested from every partition run.
	DefaultTargetGroups = 5
	// DefaultNamingConcurrency bounds the groups post-processed at once.
	DefaultNamingConcurrency = 4
	// DefaultSource tags items ingested without an explicit source.
	DefaultSource = "api_ingest"
)

// Store is the item persistence the organizer needs.
type Store interface {
	Get(ctx context.Context, id string) (model.Item, error)
	GetAll(ctx context.Context) ([]model.Item, error)
	SetVector(ctx context.Context, id string, vec []float32) error
	SetGroup(ctx context.Context, id, groupID string) error
	Put(ctx context.Context, item model.Item) error
}

// MaintenanceStore is implemented by stores that can also remove and count
// items. DeleteItem, ClearItems and CountItems require it.
type MaintenanceStore interface {
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)
}

// Namer labels a group from up to three member texts.
type Namer interface {
	Name(ctx context.Context, texts []string) (string, error)
}

// Embedder turns texts into vectors, preserving order.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Organizer is safe for concurrent use. The gate is its only shared mutable
// state.
type Organizer struct {
	store    Store
	namer    Namer
	embedder Embedder

	partitioner *partition.Engine
	nudger      *nudge.Engine
	gate        *gate.Gate

	targetK           int
	namingConcurrency int
	fallbackLabels    bool
	logger            *slog.Logger
	metrics           *telemetry.MetricsCollector
}

type options struct {
	targetK           int
	alpha             float64
	window            time.Duration
	clock             gate.Clock
	maxIterations     int
	namingConcurrency int
	fallbackLabels    bool
	logger            *slog.Logger
	metrics           *telemetry.MetricsCollector
}

// Option configures an Organizer.
type Option func(*options)

// WithTargetGroups sets the k requested from each partition run.
func WithTargetGroups(k int) Option {
	return func(o *options) { o.targetK = k }
}

// WithAlpha sets the nudge blend factor.
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithDebounceWindow sets the minimum time between two reassignment rebuilds.
func WithDebounceWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

// WithClock sets the clock the debounce gate reads.
func WithClock(c gate.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMaxIterations caps the iterations of each partition run.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithNamingConcurrency bounds how many groups are summarized and named at
// once.
func WithNamingConcurrency(n int) Option {
	return func(o *options) { o.namingConcurrency = n }
}

// WithFallbackLabels keeps a group whose namer call fails, labeled
// "Cluster N", instead of dropping it from the result.
func WithFallbackLabels(enabled bool) Option {
	return func(o *options) { o.fallbackLabels = enabled }
}

// WithLogger sets the logger for the organizer and its engines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

// New creates an Organizer. embedder may be nil when Ingest is not used.
func New(store Store, namer Namer, embedder Embedder, opts ...Option) (*Organizer, error) {
	if store == nil {
		return nil, errortypes.ConfigError(errortypes.ErrInvalidParameter, "organizer requires a store")
	}
	if namer == nil {
		return nil, errortypes.ConfigError(errortypes.ErrInvalidParameter, "organizer requires a namer")
	}

	o := options{
		targetK:           DefaultTargetGroups,
		alpha:             nudge.DefaultAlpha,
		window:            gate.DefaultWindow,
		clock:             gate.SystemClock,
		maxIterations:     partition.DefaultMaxIterations,
		namingConcurrency: DefaultNamingConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewMetricsCollector()
	}
	if o.targetK < 1 {
		return nil, errortypes.ConfigError(
			fmt.Errorf("%w: target groups must be positive, got %d", errortypes.ErrInvalidParameter, o.targetK),
			"invalid organizer configuration")
	}
	if o.namingConcurrency < 1 {
		o.namingConcurrency = 1
	}

	logger := o.logger.With("component", "organizer")
	nudger, err := nudge.NewEngine(o.alpha, nudge.WithLogger(logger))
	if err != nil {
		return nil, errortypes.ConfigError(err, "invalid organizer configuration")
	}

	return &Organizer{
		store:    store,
		namer:    namer,
		embedder: embedder,
		partitioner: partition.NewEngine(
			partition.WithMaxIterations(o.maxIterations),
			partition.WithLogger(logger),
		),
		nudger:            nudger,
		gate:              gate.New(o.window, gate.WithClock(o.clock)),
		targetK:           o.targetK,
		namingConcurrency: o.namingConcurrency,
		fallbackLabels:    o.fallbackLabels,
		logger:            logger,
		metrics:           o.metrics,
	}, nil
}

// Partition groups items into at most k groups.
func (o *Organizer) Partition(items []model.Item, k int) (partition.Partition, error) {
	return o.partitioner.Partition(items, k)
}

// Nudge moves current toward target by the configured alpha.
func (o *Organizer) Nudge(current, target []float32) (nudge.Result, error) {
	return o.nudger.Nudge(current, target)
}

// TargetGroups returns the configured k.
func (o *Organizer) TargetGroups() int {
	return o.targetK
}

// Gate exposes the debounce gate for health reporting.
func (o *Organizer) Gate() *gate.Gate {
	return o.gate
}

// Metrics returns the organizer's metrics collector.
func (o *Organizer) Metrics() *telemetry.MetricsCollector {
	return o.metrics
}

// Document is one text to ingest. An empty ID gets a generated one.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Ingest embeds texts and stores them as new items. Every item gets the
// shared metadata plus its batch index. It returns the new ids in input
// order.
func (o *Organizer) Ingest(ctx context.Context, texts []string, metadata map[string]string) ([]string, error) {
	docs := make([]Document, len(texts))
	for i, text := range texts {
		docs[i] = Document{Text: text, Metadata: metadata}
	}
	return o.IngestDocuments(ctx, docs)
}

// IngestDocuments embeds and stores docs in one batch. Validation happens
// before anything is embedded, so a rejected batch stores nothing.
func (o *Organizer) IngestDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if o.embedder == nil {
		return nil, errortypes.ConfigError(errors.New("no embedder configured"), "ingest unavailable")
	}
	if len(docs) == 0 {
		return nil, errortypes.ValidationError(errortypes.ErrEmptyInput, "no texts to ingest")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			return nil, errortypes.ValidationError(errortypes.ErrEmptyInput, "text must not be blank").
				WithField("index", i)
		}
		texts[i] = d.Text
	}

	vectors, err := o.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, errortypes.ExternalError(err, "failed to embed texts")
	}
	if len(vectors) != len(docs) {
		return nil, errortypes.InternalError(
			fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(docs)),
			"embedding count mismatch")
	}

	now := time.Now()
	ids := make([]string, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = util.NewItemID()
		}

		meta := map[string]string{"source": DefaultSource}
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta["batch_index"] = strconv.Itoa(i)
		meta["content_hash"] = util.ContentHash(d.Text)

		item := model.Item{
			ID:        id,
			Text:      d.Text,
			Vector:    vectors[i],
			Metadata:  meta,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := o.store.Put(ctx, item); err != nil {
			return ids[:i], errortypes.DatabaseError(err, "failed to store item").WithField("item_id", id)
		}
		ids[i] = id
	}

	o.metrics.IncrementCounter(telemetry.MetricItemsIngested, int64(len(ids)))
	o.logger.Info("Ingested items", "count", len(ids))
	return ids, nil
}

// Items returns every stored item in insertion order.
func (o *Organizer) Items(ctx context.Context) ([]model.Item, error) {
	items, err := o.store.GetAll(ctx)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to load items")
	}
	o.metrics.SetGauge(telemetry.MetricItemCount, float64(len(items)))
	return items, nil
}

// Groups rebuilds groups over the whole stored item set.
func (o *Organizer) Groups(ctx context.Context) (*RebuildResult, error) {
	items, err := o.Items(ctx)
	if err != nil {
		return nil, err
	}
	return o.RebuildGroups(ctx, items)
}

func (o *Organizer) maintenance() (MaintenanceStore, error) {
	ms, ok := o.store.(MaintenanceStore)
	if !ok {
		return nil, errortypes.ConfigError(fmt.Errorf("store %T cannot delete or count items", o.store), "maintenance unavailable")
	}
	return ms, nil
}

// DeleteItem removes one item.
func (o *Organizer) DeleteItem(ctx context.Context, id string) error {
	ms, err := o.maintenance()
	if err != nil {
		return err
	}
	if err := ms.Delete(ctx, id); err != nil {
		return o.storeError(err, "failed to delete item", id)
	}
	return nil
}

// ClearItems removes every item and returns how many were removed.
func (o *Organizer) ClearItems(ctx context.Context) (int, error) {
	ms, err := o.maintenance()
	if err != nil {
		return 0, err
	}
	n, err := ms.Clear(ctx)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear items")
	}
	o.metrics.SetGauge(telemetry.MetricItemCount, 0)
	o.logger.Info("Cleared items", "count", n)
	return n, nil
}

// CountItems returns the number of stored items.
func (o *Organizer) CountItems(ctx context.Context) (int, error) {
	ms, err := o.maintenance()
	if err != nil {
		return 0, err
	}
	n, err := ms.Count(ctx)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to count items")
	}
	o.metrics.SetGauge(telemetry.MetricItemCount, float64(n))
	return n, nil
}

// storeError maps a store failure for one item onto the error taxonomy.
func (o *Organizer) storeError(err error, message, itemID string) error {
	if errors.Is(err, errortypes.ErrItemNotFound) {
		return errortypes.NotFoundError(errortypes.ErrItemNotFound, "item not found").WithField("item_id", itemID)
	}
	return errortypes.DatabaseError(err, message).WithField("item_id", itemID)
}
