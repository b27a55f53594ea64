package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tryboy869/gitradar/internal/common"
	"github.com/Tryboy869/gitradar/internal/port"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefixSearch 查询缓存的 key 前缀
	KeyPrefixSearch = "gitradar:search:"

	DefaultTTL = 10 * time.Minute
)

// SearchKey 返回查询缓存在 Redis 中的 key
func SearchKey(key string) string {
	return KeyPrefixSearch + key
}

// RedisCache 实现了 port.SearchCache 接口
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ port.SearchCache = (*RedisCache)(nil)

// NewRedisClient 解析 redisURL 并验证连通性
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("解析 REDIS_URL 失败: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, common.WrapError(common.ErrCodeCache, "redis ping 失败", err)
	}
	return client, nil
}

// NewRedisCache ttl 非正时使用默认值
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get 未命中返回 nil, false, nil
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, SearchKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, common.WrapError(common.ErrCodeCache, "读取缓存失败", err)
	}
	return data, true, nil
}

// Set 写入并设置过期时间
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, SearchKey(key), value, c.ttl).Err(); err != nil {
		return common.WrapError(common.ErrCodeCache, "写入缓存失败", err)
	}
	return nil
}

// Flush 删除全部查询缓存, 扫描结束后调用
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefixSearch+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return common.WrapError(common.ErrCodeCache, "删除缓存失败", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return common.WrapError(common.ErrCodeCache, "扫描缓存失败", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return common.WrapError(common.ErrCodeCache, "删除缓存失败", err)
		}
	}
	return nil
}

// Ping 就绪检查用
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return common.WrapError(common.ErrCodeCache, "redis ping 失败", err)
	}
	return nil
}
