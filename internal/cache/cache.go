// Package cache implements the short-TTL read-through cache for bucket
// listings. The ungrouped-model listing needs an extra cross-bucket prefix
// scan, so results are held for a bounded window and invalidated
// explicitly whenever a mutation changes bucket membership.
package cache

import (
	"sync"
	"time"

	"github.com/printshelf/printshelf/internal/model"
)

// DefaultTTL is how long a listing stays fresh without invalidation.
const DefaultTTL = 60 * time.Second

type entry struct {
	files    []model.FileInfo
	storedAt time.Time
}

// ListingCache maps a listing key to its most recent result. Stale entries
// are not swept; they are superseded on the next Put or ignored on Get.
type ListingCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New returns an empty cache with the given TTL.
func New(ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListingCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached listing for key if it is younger than the TTL.
func (c *ListingCache) Get(key string) ([]model.FileInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.files, true
}

// Put overwrites the entry for key with the current timestamp.
func (c *ListingCache) Put(key string, files []model.FileInfo) {
	c.mu.Lock()
	c.entries[key] = entry{files: files, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes the entry for key immediately. Mutating operations
// call this synchronously so their effect is visible on the next listing.
func (c *ListingCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
