package itemstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/localrivet/latentfs/internal/model"
)

const (
	itemKeyPrefix = "item/"
	sequenceKey   = "meta/seq"
	// MemoryPath opens a BadgerStore without touching disk.
	MemoryPath = ":memory:"
)

// badgerRecord is the msgpack value stored under item/<id>. Seq fixes the
// item's position in insertion order across upserts.
type badgerRecord struct {
	Seq  uint64     `msgpack:"seq"`
	Item model.Item `msgpack:"item"`
}

// BadgerStore is an ItemStore backed by BadgerDB.
type BadgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

// BadgerOption configures a BadgerStore.
type BadgerOption func(*BadgerStore)

// WithBadgerLogger routes badger's internal warnings and errors to logger.
func WithBadgerLogger(logger *slog.Logger) BadgerOption {
	return func(s *BadgerStore) {
		s.logger = logger
	}
}

// NewBadgerStore creates a new BadgerStore instance.
func NewBadgerStore(opts ...BadgerOption) *BadgerStore {
	s := &BadgerStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize opens the database in dir. An empty dir or MemoryPath keeps all
// data in memory.
func (s *BadgerStore) Initialize(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbOpts := badger.DefaultOptions(dir)
	if dir == "" || dir == MemoryPath {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(slogBadgerLogger{logger: s.logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to open item sequence: %w", err)
	}
	s.db = db
	s.seq = seq
	return nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	var errs []error
	if err := s.seq.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	s.db, s.seq = nil, nil
	return errors.Join(errs...)
}

func (s *BadgerStore) handle() (*badger.DB, error) {
	if s.db == nil {
		return nil, errors.New("badger store is not initialized")
	}
	return s.db, nil
}

func itemKey(id string) []byte {
	return []byte(itemKeyPrefix + id)
}

// Put inserts or replaces an item. Replacing keeps the original sequence
// number and creation time.
func (s *BadgerStore) Put(_ context.Context, item model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	now := time.Now()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	return db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, item.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			next, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence for item %s: %w", item.ID, err)
			}
			if item.CreatedAt.IsZero() {
				item.CreatedAt = now
			}
			rec = badgerRecord{Seq: next}
		case err != nil:
			return err
		default:
			item.CreatedAt = rec.Item.CreatedAt
		}
		rec.Item = item
		return writeRecord(txn, rec)
	})
}

// Get returns the item with the given id.
func (s *BadgerStore) Get(_ context.Context, id string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return model.Item{}, err
	}

	var rec badgerRecord
	err = db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, id)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	return rec.Item, nil
}

// GetAll returns every item ordered by sequence number.
func (s *BadgerStore) GetAll(_ context.Context) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var records []badgerRecord
	err = db.View(func(txn *badger.Txn) error {
		prefix := []byte(itemKeyPrefix)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec badgerRecord
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	items := make([]model.Item, len(records))
	for i, rec := range records {
		items[i] = rec.Item
	}
	return items, nil
}

// SetVector replaces an item's vector.
func (s *BadgerStore) SetVector(_ context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: refusing to store an empty vector", id)
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	return s.modify(id, func(item *model.Item) {
		item.Vector = stored
	})
}

// SetGroup records an item's group assignment.
func (s *BadgerStore) SetGroup(_ context.Context, id, groupID string) error {
	return s.modify(id, func(item *model.Item) {
		item.GroupID = groupID
	})
}

func (s *BadgerStore) modify(id string, fn func(*model.Item)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		fn(&rec.Item)
		rec.Item.UpdatedAt = time.Now()
		return writeRecord(txn, rec)
	})
}

// Delete removes an item.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(itemKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(itemKey(id))
	})
}

// Count returns the number of stored items.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	keys, err := s.keys()
	return len(keys), err
}

// Clear removes every item in a single write batch.
func (s *BadgerStore) Clear(_ context.Context) (int, error) {
	keys, err := s.keys()
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *BadgerStore) keys() ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var keys [][]byte
	err = db.View(func(txn *badger.Txn) error {
		prefix := []byte(itemKeyPrefix)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func readRecord(txn *badger.Txn, id string) (badgerRecord, error) {
	var rec badgerRecord
	entry, err := txn.Get(itemKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	val, err := entry.ValueCopy(nil)
	if err != nil {
		return rec, err
	}
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return rec, nil
}

func writeRecord(txn *badger.Txn, rec badgerRecord) error {
	val, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", rec.Item.ID, err)
	}
	return txn.Set(itemKey(rec.Item.ID), val)
}

// slogBadgerLogger adapts slog to badger.Logger. Info and debug output from
// badger is dropped.
type slogBadgerLogger struct {
	logger *slog.Logger
}

func (l slogBadgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l slogBadgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogBadgerLogger) Infof(string, ...interface{})  {}
func (slogBadgerLogger) Debugf(string, ...interface{}) {}
