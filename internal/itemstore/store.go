// Package itemstore provides durable storage for items, their vectors and
// their last persisted group assignment.
package itemstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localrivet/latentfs/internal/errortypes"
	"github.com/localrivet/latentfs/internal/model"
)

// ErrNotFound is returned when an item id is not present in the store. It
// matches errortypes.ErrItemNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("itemstore: %w", errortypes.ErrItemNotFound)

// Store provider names.
const (
	ProviderSQLite = "sqlite"
	ProviderBadger = "badger"
	ProviderMemory = "memory"
)

// ItemStore defines the interface for storing and retrieving items.
// Implementations are safe for concurrent use.
type ItemStore interface {
	// Initialize opens the store at path. Its meaning is backend specific.
	Initialize(path string) error

	// Close closes the store and releases any resources.
	Close() error

	// Put inserts the item or replaces the stored item with the same id.
	Put(ctx context.Context, item model.Item) error

	// Get returns the item with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Item, error)

	// GetAll returns every item in insertion order.
	GetAll(ctx context.Context) ([]model.Item, error)

	// SetVector replaces an item's vector.
	SetVector(ctx context.Context, id string, vec []float32) error

	// SetGroup records an item's group assignment.
	SetGroup(ctx context.Context, id, groupID string) error

	// Delete removes an item.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)

	// Clear removes every item and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// New returns an uninitialized store for the named provider.
func New(provider string) (ItemStore, error) {
	switch strings.ToLower(provider) {
	case ProviderSQLite, "":
		return NewSQLiteStore(), nil
	case ProviderBadger:
		return NewBadgerStore(), nil
	case ProviderMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown item store provider: %s", provider)
	}
}

func validateItem(item model.Item) error {
	if item.ID == "" {
		return errors.New("item id is required")
	}
	if len(item.Vector) == 0 {
		return fmt.Errorf("item %s has an empty vector", item.ID)
	}
	return nil
}
