/*
Package cache holds expansion results keyed by normalized query, model and
temperature.

Entries expire lazily: a Get that finds an entry older than the TTL deletes
it and reports a miss. A TTL of zero disables the cache entirely. Storage is
pluggable through Store; MemoryStore keeps entries in process and
BadgerStore persists them across restarts. Store failures degrade to misses.
*/
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Entry is one cached expansion.
type Entry struct {
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is a concurrency-safe key/entry map.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, e Entry)
	// DeleteIf removes key only while its entry was stored at storedAt.
	DeleteIf(key string, storedAt time.Time)
	Len() int
}

// Cache applies TTL semantics over a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over store. ttl <= 0 disables it.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds "model:temperature:normalized query" with the temperature
// formatted to three decimals.
func Key(query, model string, temperature float64) string {
	return fmt.Sprintf("%s:%.3f:%s", model, temperature, Normalize(query))
}

// Normalize lowercases q and collapses whitespace runs to single spaces.
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Enabled reports whether the TTL is positive.
func (c *Cache) Enabled() bool {
	return c.ttl > 0 && c.store != nil
}

// Get returns the value for key when present and not older than the TTL.
func (c *Cache) Get(key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	e, ok := c.store.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		c.store.DeleteIf(key, e.StoredAt)
		return "", false
	}
	return e.Value, true
}

// Set stores value under key, overwriting any previous entry.
func (c *Cache) Set(key, value string) {
	if !c.Enabled() {
		return
	}
	c.store.Put(key, Entry{Value: value, StoredAt: c.now()})
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	if c.store == nil {
		return 0
	}
	return c.store.Len()
}
