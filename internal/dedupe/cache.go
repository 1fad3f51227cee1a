// ABOUTME: Thread-safe TTL cache remembering the outcome of idempotent requests.
// ABOUTME: Replays the stored response when a client retries with the same Idempotency-Key.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	stored  time.Time
	value   V
	element *list.Element
}

// Cache is a TTL and size bounded map from request keys to the response that
// was produced the first time. Oldest entries are evicted first.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and maximum size.
// A background goroutine periodically drops expired entries until Close.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*cacheEntry[V]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns the value stored for key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.stored) >= c.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Put stores value under key, replacing any previous value. If the cache is
// full the oldest entry is evicted.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.entries[key]; ok {
		entry.stored = now
		entry.value = value
		c.order.MoveToBack(entry.element)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry[V]{
		stored:  now,
		value:   value,
		element: c.order.PushBack(key),
	}
}

// Len reports the number of entries, expired ones included until the next sweep.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest must be called with mu held.
func (c *Cache[V]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}

func (c *Cache[V]) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes expired entries. Entries are ordered by store time, so it
// stops at the first live one.
func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		key, _ := front.Value.(string)
		if now.Sub(c.entries[key].stored) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.entries, key)
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
