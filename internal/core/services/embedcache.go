package services

import (
	"container/list"
	"sync"
	"time"
)

// Embedding cache defaults.
const (
	DefaultEmbedCacheSize = 256
	DefaultEmbedCacheTTL  = 5 * time.Minute
)

// EmbedCache is a bounded TTL cache for query embeddings, keyed by
// exact query text. It short-circuits repeated identical queries so
// the embedding provider is not called redundantly. Eviction is LRU
// plus TTL; the cache never grows unbounded.
type EmbedCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front = most recent
	entries map[string]*list.Element

	// now is swappable for tests.
	now func() time.Time
}

type embedEntry struct {
	key     string
	vector  []float32
	expires time.Time
}

// NewEmbedCache creates a cache with the given bounds.
// Non-positive arguments fall back to defaults.
func NewEmbedCache(maxSize int, ttl time.Duration) *EmbedCache {
	if maxSize <= 0 {
		maxSize = DefaultEmbedCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultEmbedCacheTTL
	}
	return &EmbedCache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the cached embedding for text, if present and fresh.
func (c *EmbedCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[text]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*embedEntry)
	if c.now().After(entry.expires) {
		c.order.Remove(el)
		delete(c.entries, text)
		return nil, false
	}

	c.order.MoveToFront(el)
	return entry.vector, true
}

// Put stores an embedding for text, evicting the least recently used
// entry when the size bound is reached.
func (c *EmbedCache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[text]; ok {
		entry := el.Value.(*embedEntry)
		entry.vector = vector
		entry.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*embedEntry).key)
	}

	el := c.order.PushFront(&embedEntry{
		key:     text,
		vector:  vector,
		expires: c.now().Add(c.ttl),
	})
	c.entries[text] = el
}

// Len returns the current entry count.
func (c *EmbedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
