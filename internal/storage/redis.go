package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stationstats:response:"

// RedisCache is a Cache backed by Redis. Expiry is left to Redis TTLs.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and checks the connection
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get returns a cached body; the value is an 8-byte fetch time followed by
// the compressed body
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached response: %w", err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("cached response for %s is truncated", key)
	}

	body, err := decompress(raw[8:])
	if err != nil {
		return nil, err
	}
	fetchedAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8]))).UTC()
	return &Entry{Body: body, FetchedAt: fetchedAt}, nil
}

// Put stores a body with a Redis TTL
func (c *RedisCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	data, err := compress(body)
	if err != nil {
		return err
	}
	raw := make([]byte, 8, 8+len(data))
	binary.BigEndian.PutUint64(raw, uint64(time.Now().UnixNano()))
	raw = append(raw, data...)

	if err := c.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

// Prune is a no-op; Redis expires keys itself
func (c *RedisCache) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Close closes the Redis connection pool
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
