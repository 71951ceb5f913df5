package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired 未抢到锁
var ErrLockNotAcquired = errors.New("lock not acquired")

// 释放锁：仅持有者可删
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// lockClient 锁依赖的最小 Redis 能力
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker 基于 Redis SETNX 的分布式锁
type RedisLocker struct {
	client lockClient
}

// NewRedisLocker 创建分布式锁实例
func NewRedisLocker() *RedisLocker {
	return &RedisLocker{}
}

// WithLock 持锁执行 fn；未抢到锁返回 ErrLockNotAcquired
func (l *RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	client := l.client
	if client == nil {
		if !Enabled() {
			// 缓存未启用时退化为本地直跑
			return fn(ctx)
		}
		client = redisClient
	}
	owner := uuid.NewString()
	fullKey := buildKey(key)
	ok, err := client.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotAcquired
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = client.Eval(releaseCtx, unlockScript, []string{fullKey}, owner).Err()
	}()
	return fn(ctx)
}
