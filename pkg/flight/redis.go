package flight

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard claims keys with SetNX so the single-flight guarantee spans
// multiple orchestrator instances sharing one Redis. The TTL bounds how long
// a crashed instance can hold a key.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, "flight:"+key, "1", g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) {
	_ = g.rdb.Del(ctx, "flight:"+key).Err()
}
