package itemstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/latentfs/internal/model"
)

type storeFactory func(t *testing.T) ItemStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		ProviderSQLite: func(t *testing.T) ItemStore {
			s := NewSQLiteStore()
			require.NoError(t, s.Initialize(filepath.Join(t.TempDir(), "items.db")))
			return s
		},
		ProviderBadger: func(t *testing.T) ItemStore {
			s := NewBadgerStore()
			require.NoError(t, s.Initialize(MemoryPath))
			return s
		},
		ProviderMemory: func(t *testing.T) ItemStore {
			return NewMemoryStore()
		},
	}
}

func testItem(id string, vec ...float32) model.Item {
	return model.Item{
		ID:       id,
		Text:     "text of " + id,
		Vector:   vec,
		Metadata: map[string]string{"source": "test"},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s ItemStore)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestPutAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, testItem("a", 1, 2, 3)))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.Equal(t, "text of a", got.Text)
		assert.Equal(t, []float32{1, 2, 3}, got.Vector)
		assert.Equal(t, "test", got.Metadata["source"])
		assert.False(t, got.HasGroup())
		assert.False(t, got.CreatedAt.IsZero())

		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPutRejectsInvalidItems(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		assert.Error(t, s.Put(ctx, testItem("", 1)))
		assert.Error(t, s.Put(ctx, testItem("empty")))
	})
}

func TestGetAllKeepsInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		for _, id := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, s.Put(ctx, testItem(id, 1, 0)))
		}
		// Upserting an existing item keeps its position.
		updated := testItem("zeta", 0, 1)
		updated.Text = "rewritten"
		require.NoError(t, s.Put(ctx, updated))

		items, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids(items))
		assert.Equal(t, "rewritten", items[0].Text)
		assert.Equal(t, []float32{0, 1}, items[0].Vector)
	})
}

func TestSetVectorAndGroup(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, testItem("a", 1, 0)))

		require.NoError(t, s.SetVector(ctx, "a", []float32{0.6, 0.8}))
		require.NoError(t, s.SetGroup(ctx, "a", model.GroupID(2)))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.6, 0.8}, got.Vector)
		assert.Equal(t, "cluster_2", got.GroupID)
		assert.Equal(t, "text of a", got.Text)

		assert.ErrorIs(t, s.SetVector(ctx, "missing", []float32{1}), ErrNotFound)
		assert.ErrorIs(t, s.SetGroup(ctx, "missing", "cluster_0"), ErrNotFound)
		assert.Error(t, s.SetVector(ctx, "a", nil))

		require.NoError(t, s.SetGroup(ctx, "a", ""))
		got, err = s.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, got.HasGroup())
	})
}

func TestDeleteCountAndClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Put(ctx, testItem(fmt.Sprintf("item-%d", i), float32(i), 1)))
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		require.NoError(t, s.Delete(ctx, "item-2"))
		assert.ErrorIs(t, s.Delete(ctx, "item-2"), ErrNotFound)

		items, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"item-0", "item-1", "item-3", "item-4"}, ids(items))

		removed, err := s.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, removed)

		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestConcurrentWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s ItemStore) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("c-%d", i)
				assert.NoError(t, s.Put(ctx, testItem(id, float32(i), 1)))
				assert.NoError(t, s.SetGroup(ctx, id, model.GroupID(i%3)))
			}(i)
		}
		wg.Wait()

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 16, n)
	})
}

func TestReturnedItemsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testItem("a", 1, 2)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Vector[0] = 99

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")
	ctx := context.Background()

	s := NewSQLiteStore()
	require.NoError(t, s.Initialize(path))
	require.NoError(t, s.Put(ctx, testItem("kept", 0.5, 0.5)))
	require.NoError(t, s.SetGroup(ctx, "kept", "cluster_1"))
	require.NoError(t, s.Close())

	reopened := NewSQLiteStore()
	require.NoError(t, reopened.Initialize(path))
	defer reopened.Close()

	got, err := reopened.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "cluster_1", got.GroupID)
	assert.Equal(t, []float32{0.5, 0.5}, got.Vector)
}

func TestUninitializedStoresFail(t *testing.T) {
	ctx := context.Background()
	_, err := NewSQLiteStore().GetAll(ctx)
	assert.Error(t, err)
	_, err = NewBadgerStore().GetAll(ctx)
	assert.Error(t, err)
}

func TestNewSelectsProvider(t *testing.T) {
	s, err := New("badger")
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)

	s, err = New("")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = New("postgres")
	assert.Error(t, err)
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
