package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rafaelleal24/inventory/internal/core/port"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is a process-local CachePort bounded by an LRU. Values are stored
// encoded so callers never share memory with the cache.
//
// Expired entries are dropped before a live one is evicted. A full cache of
// live entries still evicts the least recently used, so callers that rely on
// SetNX exclusivity (idempotency keys) need a cache sized for their peak of
// in-flight keys.
type Cache[T any] struct {
	mu      sync.Mutex
	size    int
	entries *lru.Cache[string, entry]
	now     func() time.Time
}

func NewCache[T any](size int) (port.CachePort[T], error) {
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{size: size, entries: entries, now: time.Now}, nil
}

func (c *Cache[T]) Get(_ context.Context, key string) (*T, error) {
	c.mu.Lock()
	e, ok := c.entries.Get(key)
	if ok && e.expired(c.now()) {
		c.entries.Remove(key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return nil, nil
	}

	var value T
	if err := json.Unmarshal(e.data, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func (c *Cache[T]) Set(_ context.Context, key string, value *T, ttl time.Duration) error {
	e, err := c.encode(value, ttl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.add(key, e)
	c.mu.Unlock()
	return nil
}

func (c *Cache[T]) SetNX(_ context.Context, key string, value *T, ttl time.Duration) (bool, error) {
	e, err := c.encode(value, ttl)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries.Peek(key); ok && !existing.expired(c.now()) {
		return false, nil
	}
	c.add(key, e)
	return true, nil
}

// add must be called with mu held.
func (c *Cache[T]) add(key string, e entry) {
	if !c.entries.Contains(key) && c.entries.Len() >= c.size {
		c.pruneExpired()
	}
	c.entries.Add(key, e)
}

func (c *Cache[T]) pruneExpired() {
	now := c.now()
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok && e.expired(now) {
			c.entries.Remove(key)
		}
	}
}

func (c *Cache[T]) Del(_ context.Context, key string) error {
	c.mu.Lock()
	c.entries.Remove(key)
	c.mu.Unlock()
	return nil
}

func (c *Cache[T]) encode(value *T, ttl time.Duration) (entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return entry{}, err
	}

	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	return e, nil
}
