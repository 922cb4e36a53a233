package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache guarda as páginas de listagem e os contadores da home.
// Cada tipo tem um hash próprio (campo = página), então invalidar é um DEL só.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

const keyCounts = "catalog:counts"

func keyList(kind string) string { return "catalog:list:" + kind }

func pageField(page int) string { return "page:" + strconv.Itoa(page) }

// GetPage devolve false quando a página não está em cache
func (r *RedisCache) GetPage(ctx context.Context, kind string, page int, dst any) (bool, error) {
	return r.hget(ctx, keyList(kind), pageField(page), dst)
}

func (r *RedisCache) SetPage(ctx context.Context, kind string, page int, v any) error {
	return r.hset(ctx, keyList(kind), pageField(page), v)
}

func (r *RedisCache) GetCounts(ctx context.Context, dst any) (bool, error) {
	return r.hget(ctx, keyCounts, "all", dst)
}

func (r *RedisCache) SetCounts(ctx context.Context, v any) error {
	return r.hset(ctx, keyCounts, "all", v)
}

// Invalidate descarta as páginas do tipo e os contadores
func (r *RedisCache) Invalidate(ctx context.Context, kind string) error {
	return r.Client.Del(ctx, keyList(kind), keyCounts).Err()
}

func (r *RedisCache) hget(ctx context.Context, key, field string, dst any) (bool, error) {
	b, err := r.Client.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (r *RedisCache) hset(ctx context.Context, key, field string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key, field, b)
	pipe.Expire(ctx, key, r.TTL)
	_, err = pipe.Exec(ctx)
	return err
}
