// Package cache provides a small TTL cache for remote API responses,
// backed by BoltDB so entries survive process restarts.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketResponses = "responses"

// entry wraps a cached payload with its expiry.
type entry struct {
	Data      []byte    `json:"data"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is a persistent key/value cache with per-entry TTL.
type Cache struct {
	db *bbolt.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketResponses))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Set stores data under key with the given time to live.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	e := entry{Data: data, CachedAt: now, ExpiresAt: now.Add(ttl)}

	encoded, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketResponses)).Put([]byte(key), encoded)
	})
}

// Get returns the cached payload for key, or ok=false when the key is
// missing or the entry has expired. Expired entries are left in place for
// Purge to collect.
func (c *Cache) Get(key string) ([]byte, bool) {
	var data []byte
	ok := false

	_ = c.db.View(func(tx *bbolt.Tx) error { //nolint:errcheck
		raw := tx.Bucket([]byte(bucketResponses)).Get([]byte(key))
		if raw == nil {
			return nil
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil // treat malformed entries as misses
		}
		if time.Now().After(e.ExpiresAt) {
			return nil
		}

		data = append([]byte(nil), e.Data...)
		ok = true
		return nil
	})

	return data, ok
}

// Purge removes expired entries and returns how many were deleted.
func (c *Cache) Purge() (int, error) {
	var deleted int

	err := c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketResponses))
		now := time.Now()

		var stale [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil || now.After(e.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}
