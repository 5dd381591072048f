package cache

import (
	"bytes"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is the primary on-disk Store implementation (spec.md §4.6),
// grounded on the teacher's internal/v3/store.BadgerStore. Every box shares
// one badger.DB, namespaced by key prefix, since badger has no native
// notion of separate keyspaces.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(box Box, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(namespacedKey(box, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *BadgerStore) Put(box Box, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(namespacedKey(box, key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(box Box, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(namespacedKey(box, key))
	})
}

func (s *BadgerStore) DeletePrefix(box Box, prefix string) error {
	fullPrefix := namespacedKey(box, prefix)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) ForEach(box Box, fn func(key string, value []byte) bool) error {
	boxPrefix := []byte(string(box) + ":")
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(boxPrefix); it.ValidForPrefix(boxPrefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), string(boxPrefix))
			cont := true
			err := item.Value(func(val []byte) error {
				cont = fn(key, bytes.Clone(val))
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error { return s.db.Close() }

// RunValueLogGC triggers badger's value-log garbage collection once. The
// caller is expected to schedule this periodically; badger returns
// ErrNoRewrite when there's nothing to reclaim, which is not an error
// condition worth surfacing.
func (s *BadgerStore) RunValueLogGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}
