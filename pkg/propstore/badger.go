package propstore

import (
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Database key namespace:
//
// Data Type    Prefix   Key Format      Value
// =================================================
// Property     "prop:"  prop:<name>     raw bytes
//
// Everything the client persists lives in the single property namespace;
// structure (cache shards, session fields) is expressed in the key names
// themselves, mirroring the host platform's flat property model.
const prefixProperty = "prop:"

// BadgerStore is a BadgerDB-backed property store.
type BadgerStore struct {
	db *badgerdb.DB
}

// OpenBadger opens (or creates) a Badger-backed store at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open property store at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func keyProperty(name string) []byte {
	return []byte(prefixProperty + name)
}

// Get returns the value for key, or ErrNotFound.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyProperty(key))
		if err == badgerdb.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read property %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, enforcing the size ceiling.
func (s *BadgerStore) Set(key string, value []byte) error {
	if err := checkSize(key, value); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyProperty(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to store property %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are ignored.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyProperty(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete property %q: %w", key, err)
	}
	return nil
}

// Keys returns all property names with the given prefix.
func (s *BadgerStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.IteratorOptions{
			Prefix:         keyProperty(prefix),
			PrefetchValues: false,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), prefixProperty)
			keys = append(keys, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties with prefix %q: %w", prefix, err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
