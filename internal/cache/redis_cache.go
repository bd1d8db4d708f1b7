package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "sales:table:"

type RedisTableCache struct {
	client *redis.Client
}

func NewRedisTableCache(client *redis.Client) *RedisTableCache {
	return &RedisTableCache{client: client}
}

func (c *RedisTableCache) Get(ctx context.Context, key string) ([][]string, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rows [][]string
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *RedisTableCache) Set(ctx context.Context, key string, rows [][]string, ttl time.Duration) error {
	if rows == nil {
		rows = [][]string{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

func (c *RedisTableCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}
