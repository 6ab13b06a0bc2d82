package dedup

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheCheckAndMark(t *testing.T) {
	cache := NewMemoryCache(10)
	ctx := context.Background()

	seen, err := cache.CheckAndMark(ctx, "wamid.A")
	assert.NoError(t, err)
	assert.False(t, seen)

	seen, err = cache.CheckAndMark(ctx, "wamid.A")
	assert.NoError(t, err)
	assert.True(t, seen)

	seen, err = cache.CheckAndMark(ctx, "wamid.B")
	assert.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryCacheEvictsOldestAtCapacity(t *testing.T) {
	cache := NewMemoryCache(3)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		_, err := cache.CheckAndMark(ctx, id)
		assert.NoError(t, err)
	}

	// m4 evicts m1, the oldest entry.
	seen, _ := cache.CheckAndMark(ctx, "m4")
	assert.False(t, seen)
	assert.Equal(t, 3, cache.Len())

	seen, _ = cache.CheckAndMark(ctx, "m1")
	assert.False(t, seen, "evicted id should read as unseen")

	// m2 was evicted by re-adding m1.
	seen, _ = cache.CheckAndMark(ctx, "m3")
	assert.True(t, seen, "m3 should still be tracked")
}

func TestMemoryCacheConcurrentSameID(t *testing.T) {
	cache := NewMemoryCache(100)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	firsts := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := cache.CheckAndMark(ctx, "wamid.same")
			assert.NoError(t, err)
			if !seen {
				firsts <- true
			}
		}()
	}
	wg.Wait()
	close(firsts)

	count := 0
	for range firsts {
		count++
	}
	assert.Equal(t, 1, count, "exactly one caller should win")
}

func TestMemoryCacheDefaultCapacity(t *testing.T) {
	cache := NewMemoryCache(0)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := cache.CheckAndMark(ctx, fmt.Sprintf("m%d", i))
		assert.NoError(t, err)
	}
	assert.Equal(t, 1000, cache.Len())

	cache.CheckAndMark(ctx, "overflow")
	assert.Equal(t, 1000, cache.Len())
}

func TestMemoryInflightGuard(t *testing.T) {
	guard := NewMemoryInflightGuard()
	ctx := context.Background()

	ok, err := guard.TryAcquire(ctx, "15550001111")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, _ = guard.TryAcquire(ctx, "15550001111")
	assert.False(t, ok, "second acquire while held should fail")

	ok, _ = guard.TryAcquire(ctx, "15550002222")
	assert.True(t, ok, "other senders are unaffected")

	assert.NoError(t, guard.Release(ctx, "15550001111"))
	ok, _ = guard.TryAcquire(ctx, "15550001111")
	assert.True(t, ok, "released slot should be reusable")
}
