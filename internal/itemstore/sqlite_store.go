package itemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/localrivet/latentfs/internal/model"
	"github.com/localrivet/latentfs/internal/vector"
)

const itemColumns = `id, text, vector, group_id, metadata, created_at, updated_at`

// SQLiteStore is an implementation of ItemStore that uses SQLite. A single
// connection is shared and serialized by a mutex.
type SQLiteStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Initialize opens the database file at dbPath and creates the schema.
func (s *SQLiteStore) Initialize(dbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath
	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) createTable() error {
	stmt, err := s.conn.Prepare(`
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		group_id TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// acquire locks the connection and makes running statements abort when ctx
// is done. The returned func undoes both.
func (s *SQLiteStore) acquire(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("sqlite store %q is not initialized", s.dbPath)
	}
	old := s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(old)
		s.mu.Unlock()
	}, nil
}

// Put inserts or replaces an item. Replacing keeps the item's position in
// insertion order.
func (s *SQLiteStore) Put(ctx context.Context, item model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	vecBytes, err := vector.Float32SliceToBytes(item.Vector)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for item %s: %w", item.ID, err)
	}

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	stmt, err := s.conn.Prepare(`
	INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		text = excluded.text,
		vector = excluded.vector,
		group_id = excluded.group_id,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at;`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, item.ID)
	stmt.BindText(2, item.Text)
	stmt.BindBytes(3, vecBytes)
	stmt.BindText(4, item.GroupID)
	stmt.BindText(5, string(meta))
	stmt.BindInt64(6, item.CreatedAt.UnixNano())
	stmt.BindInt64(7, item.UpdatedAt.UnixNano())

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}
	return nil
}

// Get returns the item with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Item, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return model.Item{}, err
	}
	defer release()

	stmt, err := s.conn.Prepare(`SELECT ` + itemColumns + ` FROM items WHERE id = ?;`)
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	hasRow, err := stmt.Step()
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to select item %s: %w", id, err)
	}
	if !hasRow {
		return model.Item{}, ErrNotFound
	}
	return scanItem(stmt)
}

// GetAll returns every item in insertion order.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.Item, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	stmt, err := s.conn.Prepare(`SELECT ` + itemColumns + ` FROM items ORDER BY rowid;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	var items []model.Item
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to execute select statement: %w", err)
		}
		if !hasRow {
			break
		}
		item, err := scanItem(stmt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SetVector replaces an item's vector.
func (s *SQLiteStore) SetVector(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: refusing to store an empty vector", id)
	}
	vecBytes, err := vector.Float32SliceToBytes(vec)
	if err != nil {
		return err
	}
	return s.update(ctx, `UPDATE items SET vector = ?, updated_at = ? WHERE id = ?;`, id, func(stmt *sqlite.Stmt) {
		stmt.BindBytes(1, vecBytes)
	})
}

// SetGroup records an item's group assignment.
func (s *SQLiteStore) SetGroup(ctx context.Context, id, groupID string) error {
	return s.update(ctx, `UPDATE items SET group_id = ?, updated_at = ? WHERE id = ?;`, id, func(stmt *sqlite.Stmt) {
		stmt.BindText(1, groupID)
	})
}

// update runs a single-row UPDATE whose parameters are (value, updated_at, id).
func (s *SQLiteStore) update(ctx context.Context, query, id string, bindValue func(*sqlite.Stmt)) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Reset()

	bindValue(stmt)
	stmt.BindInt64(2, time.Now().UnixNano())
	stmt.BindText(3, id)

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if s.conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	stmt, err := s.conn.Prepare(`DELETE FROM items WHERE id = ?;`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	if s.conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored items.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	stmt, err := s.conn.Prepare(`SELECT COUNT(*) FROM items;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare count statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return int(stmt.ColumnInt64(0)), nil
}

// Clear removes every item.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	stmt, err := s.conn.Prepare(`DELETE FROM items;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare clear statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("failed to clear items: %w", err)
	}
	return s.conn.Changes(), nil
}

func scanItem(stmt *sqlite.Stmt) (model.Item, error) {
	id := stmt.ColumnText(0)

	vecBytes := make([]byte, stmt.ColumnLen(2))
	stmt.ColumnBytes(2, vecBytes)
	vec, err := vector.BytesToFloat32Slice(vecBytes)
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to decode vector for item %s: %w", id, err)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &meta); err != nil {
		return model.Item{}, fmt.Errorf("failed to decode metadata for item %s: %w", id, err)
	}

	return model.Item{
		ID:        id,
		Text:      stmt.ColumnText(1),
		Vector:    vec,
		GroupID:   stmt.ColumnText(3),
		Metadata:  meta,
		CreatedAt: time.Unix(0, stmt.ColumnInt64(5)),
		UpdatedAt: time.Unix(0, stmt.ColumnInt64(6)),
	}, nil
}
