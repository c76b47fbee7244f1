package itemstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/localrivet/latentfs/internal/model"
)

// MemoryStore keeps items in process memory. It is used by tests and by the
// serve command when no persistence is wanted.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]model.Item
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.Item)}
}

// Initialize is a no-op; path is ignored.
func (s *MemoryStore) Initialize(string) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Put inserts or replaces an item, keeping the original CreatedAt and
// insertion position on replace.
func (s *MemoryStore) Put(_ context.Context, item model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	if old, ok := s.items[item.ID]; ok {
		item.CreatedAt = old.CreatedAt
	} else {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

// Get returns a copy of the item, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return cloneItem(item), nil
}

// GetAll returns copies of every item in insertion order.
func (s *MemoryStore) GetAll(_ context.Context) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, cloneItem(s.items[id]))
	}
	return items, nil
}

// SetVector replaces the item's embedding. Empty vectors are rejected.
func (s *MemoryStore) SetVector(_ context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: refusing to store an empty vector", id)
	}
	return s.modify(id, func(item *model.Item) {
		item.Vector = append([]float32(nil), vec...)
	})
}

// SetGroup records the item's group id. An empty id marks it ungrouped.
func (s *MemoryStore) SetGroup(_ context.Context, id, groupID string) error {
	return s.modify(id, func(item *model.Item) {
		item.GroupID = groupID
	})
}

func (s *MemoryStore) modify(id string, fn func(*model.Item)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	fn(&item)
	item.UpdatedAt = time.Now()
	s.items[id] = item
	return nil
}

// Delete removes the item, or returns ErrNotFound.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored items.
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Clear removes every item and reports how many there were.
func (s *MemoryStore) Clear(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	s.items = make(map[string]model.Item)
	s.order = nil
	return n, nil
}

func cloneItem(item model.Item) model.Item {
	item.Vector = append([]float32(nil), item.Vector...)
	if item.Metadata != nil {
		meta := make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			meta[k] = v
		}
		item.Metadata = meta
	}
	return item
}
