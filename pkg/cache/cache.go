// Package cache provides the persistent TTL key-value cache backing the
// embedding and geocoding clients. Both talk to metered upstream APIs,
// so repeated crawls and repeated place lookups should not pay twice.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned when a key is absent or its TTL expired.
var ErrKeyNotFound = errors.New("key not found in cache")

// Cache is a TTL key-value store.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Close() error
}

// gcInterval is how often expired value log space is reclaimed.
const gcInterval = 10 * time.Minute

// BadgerCache implements Cache on a local BadgerDB directory.
type BadgerCache struct {
	db   *badger.DB
	stop chan struct{}
}

// NewBadgerCache opens (or creates) the cache at path and starts the
// value log garbage collector.
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	c := &BadgerCache{
		db:   db,
		stop: make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// runGC reclaims space left behind by expired embeddings. Badger never
// runs value log GC on its own.
func (c *BadgerCache) runGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			// Rewrites one value log file per call when at least half
			// of it is stale. Loop until there is nothing left to do.
			for c.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// Set stores a value that expires after ttl.
func (c *BadgerCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Get retrieves a value, returning ErrKeyNotFound for missing or
// expired keys.
func (c *BadgerCache) Get(key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

// Delete removes a value.
func (c *BadgerCache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close stops the garbage collector and closes the database.
func (c *BadgerCache) Close() error {
	close(c.stop)
	return c.db.Close()
}
