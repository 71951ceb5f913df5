package cache

import (
	"context"
	"time"
)

// RedisIdempotencyCache 基于 Redis 的幂等结果缓存
type RedisIdempotencyCache struct{}

// NewRedisIdempotencyCache 创建幂等缓存实例
func NewRedisIdempotencyCache() *RedisIdempotencyCache {
	return &RedisIdempotencyCache{}
}

// Get 读取历史结果；未命中返回 (false, nil)
func (c *RedisIdempotencyCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return GetJSON(ctx, key, dest)
}

// Set 写入结果
func (c *RedisIdempotencyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return SetJSON(ctx, key, value, ttl)
}
