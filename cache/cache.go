package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// entry holds a cached value with its absolute expiry instant
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache with a periodic background sweep. Expired entries
// are treated as misses on access; the sweep only bounds memory.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	defaultTTL time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
}

// New creates a cache and starts the sweep goroutine. The first sweep runs
// immediately, subsequent sweeps every sweepInterval.
func New[K comparable, V any](defaultTTL, sweepInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:    make(map[K]entry[V]),
		defaultTTL: defaultTTL,
		stopChan:   make(chan struct{}),
	}

	go func() {
		c.sweep()

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()

	return c
}

// GetOrSet returns the live value for key if present, otherwise invokes
// loader and stores the result with expiry now + ttl. A ttl <= 0 uses the
// cache default. Loader failures propagate and are never stored.
//
// Concurrent callers missing on the same key each invoke their own loader;
// duplicate fetches are tolerated with short TTLs.
func (c *Cache[K, V]) GetOrSet(key K, loader func() (V, error), ttl time.Duration) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	value, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

// Len returns the number of entries, expired ones included
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Destroy stops the sweep goroutine and clears the cache
func (c *Cache[K, V]) Destroy() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.Clear()
}

// sweep removes all expired entries
func (c *Cache[K, V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		log.WithFields(log.Fields{
			"removed":   removed,
			"remaining": len(c.entries),
		}).Debug("Cache sweep removed expired entries")
	}
}
