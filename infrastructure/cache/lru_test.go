package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceLRU_SetGet(t *testing.T) {
	c := NewNamespaceLRU(2)

	c.Set("KV", "qrHistory", "[]")
	val, ok := c.Get("KV", "qrHistory")

	assert.True(t, ok)
	assert.Equal(t, "[]", val)

	_, ok = c.Get("OTHER", "qrHistory")
	assert.False(t, ok)
}

func TestNamespaceLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewNamespaceLRU(2)

	c.Set("KV", "a", "1")
	c.Set("KV", "b", "2")
	// Touch a so b becomes the eviction candidate
	_, _ = c.Get("KV", "a")
	c.Set("KV", "c", "3")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("KV", "b")
	assert.False(t, ok)
	_, ok = c.Get("KV", "a")
	assert.True(t, ok)
}

func TestNamespaceLRU_Invalidate(t *testing.T) {
	c := NewNamespaceLRU(10)
	c.Set("KV", "a", "1")
	c.Set("KV", "b", "2")
	c.Set("X", "a", "3")

	c.Invalidate("KV", "a")
	_, ok := c.Get("KV", "a")
	assert.False(t, ok)

	c.InvalidateNamespace("KV")
	assert.Equal(t, 1, c.Size())
	val, ok := c.Get("X", "a")
	assert.True(t, ok)
	assert.Equal(t, "3", val)
}

func TestNamespaceLRU_ZeroCapacityDisablesCache(t *testing.T) {
	c := NewNamespaceLRU(0)
	c.Set("KV", "a", "1")

	_, ok := c.Get("KV", "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
	assert.False(t, c.Enabled())
	assert.True(t, NewNamespaceLRU(1).Enabled())
}
