package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/logging"
)

const badgerKeyPrefix = "expansion:"

// BadgerStore persists entries in a badger database as JSON values.
// Read, decode and write failures are logged and treated as misses.
type BadgerStore struct {
	db  *badger.DB
	log zerolog.Logger
}

// OpenBadgerStore opens (or creates) a badger database at dir.
// An empty dir opens an in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, log: logging.Component("cache")}
}

func (s *BadgerStore) Get(key string) (Entry, bool) {
	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return Entry{}, false
	}
	return e, true
}

func (s *BadgerStore) Put(key string, e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), data)
	}); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *BadgerStore) DeleteIf(key string, storedAt time.Time) {
	k := []byte(badgerKeyPrefix + key)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		var e Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		}); err != nil {
			return err
		}
		if !e.StoredAt.Equal(storedAt) {
			return nil
		}
		return txn.Delete(k)
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) && !errors.Is(err, badger.ErrConflict) {
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

func (s *BadgerStore) Len() int {
	n := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
