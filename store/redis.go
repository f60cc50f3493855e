package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// RedisCache 是 Redis 实现的结果缓存。
// 生产环境常用，支持持久化、集群、哨兵等；TTL 语义由 Redis 原生保证。
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 按连接串创建 Redis 缓存，例如 "redis://redis:6379/1"。
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient 复用已有的 client（测试/共享连接池场景）。
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Name() string { return "redis" }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "redis get: "+err.Error())
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "redis set: "+err.Error())
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return core.NewDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "redis del: "+err.Error())
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// 确保 RedisCache 实现了 core.Cache 接口
var _ core.Cache = (*RedisCache)(nil)
