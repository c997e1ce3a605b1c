package tenant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache holds the last resolved tenant ID with a TTL. It is a performance
// optimization, not a correctness dependency: a miss just means the
// resolver consults the next source. Entries are overwritten
// unconditionally, last write wins.
type Cache struct {
	mu         sync.Mutex
	value      uuid.UUID
	insertedAt time.Time
	ttl        time.Duration
	present    bool

	// now is injectable so TTL expiry is unit-testable.
	now func() time.Time
}

// NewCache creates an empty tenant ID cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Get returns the cached tenant ID if present and unexpired. A read at or
// past insertedAt+ttl is a miss. Get has no side effects.
func (c *Cache) Get() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.present {
		return uuid.Nil, false
	}
	if !c.now().Before(c.insertedAt.Add(c.ttl)) {
		return uuid.Nil, false
	}
	return c.value, true
}

// Set stores id with the given TTL, overwriting any prior entry.
func (c *Cache) Set(id uuid.UUID, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = id
	c.insertedAt = c.now()
	c.ttl = ttl
	c.present = true
}

// Clear removes the entry immediately. Used on sign-out or explicit
// invalidation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = uuid.Nil
	c.present = false
}
