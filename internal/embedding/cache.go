package embedding

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache holds recent embeddings keyed by the exact input text.
type EmbeddingCache struct {
	entries *lru.Cache[string, []float32]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewEmbeddingCache creates a cache holding at most capacity embeddings (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	entries, err := lru.New[string, []float32](capacity)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &EmbeddingCache{entries: entries}
}

// Get returns the cached embedding for text. The returned slice is shared and must
// not be modified.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	v, ok := c.entries.Get(text)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores the embedding for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, value []float32) {
	c.entries.Add(text, value)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	return c.entries.Len()
}

// HitRate returns the fraction of Get calls served from the cache.
func (c *EmbeddingCache) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
