// Package dedup suppresses reprocessing of redelivered platform events.
//
// The Feishu open platform redelivers an event when the handler does not
// acknowledge quickly enough. Remembering seen event ids for a short window
// trades a little memory for not needing an external store. The cache does
// not survive restarts; redelivery windows are short relative to restart
// frequency in practice.
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long a seen event id is remembered.
const DefaultTTL = 60 * time.Second

// Cache is a bounded-lifetime set of already-seen event identifiers. It is
// shared process-wide across accounts and event categories; the platform
// guarantees global uniqueness of event ids, so no per-account partitioning.
type Cache struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// New creates a cache with the default TTL.
func New() *Cache {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL creates a cache with a custom TTL.
func NewWithTTL(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// SetNowFunc overrides the clock. Test hook.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// IsProcessed reports whether eventID was already seen within the TTL. An
// unseen id is recorded with the current timestamp and reported as new. An
// empty id is never deduplicated: always reported as new, never recorded.
// Every call sweeps out entries older than the TTL; there is no background
// sweep goroutine.
func (c *Cache) IsProcessed(eventID string) bool {
	if eventID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, ts := range c.seen {
		if now.Sub(ts) > c.ttl {
			delete(c.seen, id)
		}
	}
	if _, ok := c.seen[eventID]; ok {
		return true
	}
	c.seen[eventID] = now
	return false
}

// Len returns the number of remembered event ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
