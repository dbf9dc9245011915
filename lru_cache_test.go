package formulagraph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache(t *testing.T) {
	cache := newLRUCache[string, int](3)

	assert.False(t, cache.Store("key1", 1))
	assert.False(t, cache.Store("key2", 2))
	assert.False(t, cache.Store("key3", 3))
	assert.Equal(t, 3, cache.Len())

	val, ok := cache.Load("key1")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	// key2 is the least recently used entry now
	assert.True(t, cache.Store("key4", 4))
	assert.Equal(t, 3, cache.Len())
	_, ok = cache.Load("key2")
	assert.False(t, ok)
	for _, key := range []string{"key1", "key3", "key4"} {
		_, ok = cache.Load(key)
		assert.True(t, ok, key)
	}

	assert.True(t, cache.Delete("key1"))
	assert.False(t, cache.Delete("key1"))
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, ok = cache.Load("key3")
	assert.False(t, ok)
}

func TestLRUCacheUpdate(t *testing.T) {
	cache := newLRUCache[string, int](2)
	cache.Store("a", 1)
	cache.Store("b", 2)
	assert.False(t, cache.Store("a", 10))

	// the update refreshed a, so b goes first
	assert.True(t, cache.Store("c", 3))
	val, ok := cache.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 10, val)
	_, ok = cache.Load("b")
	assert.False(t, ok)
}

func TestLRUCacheDisabled(t *testing.T) {
	cache := newLRUCache[uint64, string](0)
	assert.False(t, cache.Store(1, "x"))
	_, ok := cache.Load(1)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestLRUCacheConcurrency(t *testing.T) {
	cache := newLRUCache[string, int](100)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("key%d_%d", id, j)
				cache.Store(key, j)
				cache.Load(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 100)
}
