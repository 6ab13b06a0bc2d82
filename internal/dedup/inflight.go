package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/auraflora/shopbot-server-go/internal/redis"
)

// InflightGuard prevents overlapping catalog sends to the same sender.
// A second request while the first is still streaming product cards is
// rejected instead of queued.
type InflightGuard interface {
	// TryAcquire claims the sender slot. Returns false when a send is
	// already in progress.
	TryAcquire(ctx context.Context, senderID string) (bool, error)
	Release(ctx context.Context, senderID string) error
}

// MemoryInflightGuard tracks in-flight senders in-process.
type MemoryInflightGuard struct {
	active sync.Map
}

func NewMemoryInflightGuard() *MemoryInflightGuard {
	return &MemoryInflightGuard{}
}

func (g *MemoryInflightGuard) TryAcquire(_ context.Context, senderID string) (bool, error) {
	_, loaded := g.active.LoadOrStore(senderID, time.Now())
	return !loaded, nil
}

func (g *MemoryInflightGuard) Release(_ context.Context, senderID string) error {
	g.active.Delete(senderID)
	return nil
}

// RedisInflightGuard shares the slot across replicas. The TTL bounds
// how long a crashed worker can hold a sender hostage.
type RedisInflightGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisInflightGuard(client *redis.Client, ttl time.Duration) *RedisInflightGuard {
	return &RedisInflightGuard{client: client, ttl: ttl}
}

func (g *RedisInflightGuard) TryAcquire(ctx context.Context, senderID string) (bool, error) {
	return g.client.SetNX(ctx, redis.InflightKey(senderID), 1, g.ttl).Result()
}

func (g *RedisInflightGuard) Release(ctx context.Context, senderID string) error {
	return g.client.Del(ctx, redis.InflightKey(senderID)).Err()
}
