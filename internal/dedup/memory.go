package dedup

import (
	"context"
	"sync"
)

// MemoryCache is a fixed-capacity in-process id set with FIFO eviction.
// Suitable for single-instance deployments; use the Redis cache when
// running more than one replica.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
	head     int
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryCache{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

func (c *MemoryCache) CheckAndMark(_ context.Context, messageID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[messageID]; ok {
		return true, nil
	}

	if len(c.order) < c.capacity {
		c.order = append(c.order, messageID)
	} else {
		// Ring is full: evict the oldest id and reuse its slot.
		delete(c.seen, c.order[c.head])
		c.order[c.head] = messageID
		c.head = (c.head + 1) % c.capacity
	}
	c.seen[messageID] = struct{}{}
	return false, nil
}

// Len reports the number of ids currently tracked.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
