package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitedRedisClient lists the redis commands used to persist the console credentials.
// The plain and the sentinel failover clients both return a *redis.Client which satisfies it.
type LimitedRedisClient interface {
	// HSET key field value [field value ...]
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	// HGETALL key
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	// DEL key [key ...]
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	// EXPIREAT key unix-time-seconds
	ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd
	// PERSIST key
	Persist(ctx context.Context, key string) *redis.BoolCmd
	// PING
	Ping(ctx context.Context) *redis.StatusCmd
}
