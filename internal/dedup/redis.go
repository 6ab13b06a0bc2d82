package dedup

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/auraflora/shopbot-server-go/internal/redis"
)

// RedisCache shares the seen-id set across replicas. Ids expire with a
// TTL instead of FIFO eviction.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) CheckAndMark(ctx context.Context, messageID string) (bool, error) {
	// SET NX is atomic: exactly one caller wins for a given id.
	ok, err := c.client.SetNX(ctx, redis.DedupKey(messageID), 1, c.ttl).Result()
	if err != nil && err != goredis.Nil {
		return false, err
	}
	return !ok, nil
}
