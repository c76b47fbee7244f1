package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/gate"
	"github.com/localrivet/latentfs/internal/itemstore"
	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/telemetry"
	"github.com/localrivet/latentfs/internal/vector"
)

// stubNamer labels a group with the first word of its first text, or fails
// for texts containing failOn.
type stubNamer struct {
	mu     sync.Mutex
	failOn string
	calls  int
}

func (n *stubNamer) Name(_ context.Context, texts []string) (string, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()

	for _, t := range texts {
		if n.failOn != "" && strings.Contains(t, n.failOn) {
			return "", errors.New("namer unavailable")
		}
	}
	if len(texts) == 0 {
		return "Uncategorized", nil
	}
	return strings.Fields(texts[0])[0], nil
}

func (n *stubNamer) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var _ gate.Clock = (*fixedClock)(nil)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedTwoGroups stores two well-separated triples: alpha items near the x
// axis, beta items near the y axis.
func seedTwoGroups(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	items := []model.Item{
		{ID: "a1", Text: "alpha one", Vector: []float32{1, 0, 0}},
		{ID: "a2", Text: "alpha two", Vector: []float32{0.9, 0.1, 0}},
		{ID: "a3", Text: "alpha three", Vector: []float32{0.95, 0, 0.05}},
		{ID: "b1", Text: "beta one", Vector: []float32{0, 1, 0}},
		{ID: "b2", Text: "beta two", Vector: []float32{0.1, 0.9, 0}},
		{ID: "b3", Text: "beta three", Vector: []float32{0, 0.95, 0.05}},
	}
	for _, it := range items {
		require.NoError(t, s.Put(ctx, it))
	}
}

type fixture struct {
	org   *Organizer
	store *itemstore.MemoryStore
	namer *stubNamer
	clock *fixedClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: itemstore.NewMemoryStore(),
		namer: &stubNamer{},
		clock: &fixedClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	base := []Option{
		WithTargetGroups(2),
		WithAlpha(0.9),
		WithDebounceWindow(2 * time.Second),
		WithClock(f.clock),
		WithLogger(quietLogger()),
	}
	org, err := New(f.store, f.namer, vector.NewMockEmbedder(64), append(base, opts...)...)
	require.NoError(t, err)
	f.org = org
	return f
}

func TestNewValidatesConfiguration(t *testing.T) {
	store := itemstore.NewMemoryStore()
	namer := &stubNamer{}

	_, err := New(nil, namer, nil)
	assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.Classify(err))

	_, err = New(store, nil, nil)
	require.Error(t, err)

	_, err = New(store, namer, nil, WithTargetGroups(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errortypes.ErrInvalidParameter)

	_, err = New(store, namer, nil, WithAlpha(1.5))
	require.Error(t, err)

	org, err := New(store, namer, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTargetGroups, org.TargetGroups())
	assert.Equal(t, gate.DefaultWindow, org.Gate().Window())
}

func TestIngest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.org.Ingest(ctx, []string{"machine learning models", "cooking pasta recipes"}, map[string]string{"source": "notes"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	items, err := f.org.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, "notes", items[0].Metadata["source"])
	assert.Equal(t, "0", items[0].Metadata["batch_index"])
	assert.Equal(t, "1", items[1].Metadata["batch_index"])
	assert.NotEmpty(t, items[0].Metadata["content_hash"])
	assert.Len(t, items[0].Vector, 64)
	assert.False(t, items[0].HasGroup())

	assert.Equal(t, int64(2), f.org.Metrics().GetCounter(telemetry.MetricItemsIngested))
}

func TestIngestDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.org.IngestDocuments(ctx, []Document{{ID: "fixed", Text: "some text"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed"}, ids)

	item, err := f.store.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, DefaultSource, item.Metadata["source"])

	_, err = f.org.Ingest(ctx, nil, nil)
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)

	_, err = f.org.Ingest(ctx, []string{"fine", "   "}, nil)
	assert.ErrorIs(t, err, errortypes.ErrEmptyInput)
	assert.True(t, errortypes.IsValidationError(err))

	n, err := f.org.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a rejected batch stores nothing")
}

func TestIngestWithoutEmbedder(t *testing.T) {
	org, err := New(itemstore.NewMemoryStore(), &stubNamer{}, nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = org.Ingest(context.Background(), []string{"text"}, nil)
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.Classify(err))
}

type failingEmbedder struct{}

func (failingEmbedder) CreateEmbeddings(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("upstream down")
}

func TestIngestEmbedderFailure(t *testing.T) {
	org, err := New(itemstore.NewMemoryStore(), &stubNamer{}, failingEmbedder{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = org.Ingest(context.Background(), []string{"text"}, nil)
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeExternal, errortypes.Classify(err))
}

func TestDeleteClearCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedTwoGroups(t, f.store)

	n, err := f.org.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.NoError(t, f.org.DeleteItem(ctx, "a1"))
	err = f.org.DeleteItem(ctx, "a1")
	assert.ErrorIs(t, err, errortypes.ErrItemNotFound)
	assert.True(t, errortypes.IsNotFoundError(err))

	removed, err := f.org.ClearItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	n, err = f.org.CountItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// minimalStore satisfies Store but not MaintenanceStore.
type minimalStore struct {
	Store
}

func TestMaintenanceUnavailable(t *testing.T) {
	org, err := New(minimalStore{itemstore.NewMemoryStore()}, &stubNamer{}, nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = org.CountItems(context.Background())
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.Classify(err))
}
