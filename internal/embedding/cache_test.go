package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	_, ok := c.Get("salt intake")
	assert.False(t, ok)

	c.Set("salt intake", []float32{1, 0})
	c.Set("sleep", []float32{0, 1})
	_, ok = c.Get("salt intake")
	assert.True(t, ok)

	c.Set("hydration", []float32{0.6, 0.8})
	_, ok = c.Get("sleep")
	assert.False(t, ok, "sleep should be evicted")
	v, ok := c.Get("salt intake")
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 0}, v)
	assert.Equal(t, 2, c.Len())
}

func TestEmbeddingCache_ZeroCapacityHoldsOne(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float32{1})
	c.Set("b", []float32{1})
	assert.Equal(t, 1, c.Len())
}

func TestEmbeddingCache_HitRate(t *testing.T) {
	c := NewEmbeddingCache(4)
	assert.Zero(t, c.HitRate())
	c.Set("asthma", []float32{1})
	c.Get("asthma")
	c.Get("migraine")
	assert.InDelta(t, 0.5, c.HitRate(), 1e-9)
}
