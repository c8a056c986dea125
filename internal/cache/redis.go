package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRemote shares cached views between processes through Redis.
type RedisRemote struct {
	redis  *redis.Client
	prefix string
}

// cachedView is the stored envelope
type cachedView struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewRedisRemote connects to the Redis server at redisURL
func NewRedisRemote(redisURL, prefix string) (*RedisRemote, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRemote{redis: client, prefix: prefix}, nil
}

func (r *RedisRemote) key(key string) string {
	return r.prefix + key
}

// Get implements Remote.
func (r *RedisRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached view: %w", err)
	}

	var cached cachedView
	if err := json.Unmarshal(val, &cached); err != nil {
		// Remove corrupted cache entry
		r.redis.Del(ctx, r.key(key))
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		r.redis.Del(ctx, r.key(key))
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set implements Remote.
func (r *RedisRemote) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	cached := cachedView{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached view: %w", err)
	}

	return r.redis.Set(ctx, r.key(key), jsonData, ttl).Err()
}

// Clear implements Remote. Only keys under the configured prefix are removed.
func (r *RedisRemote) Clear(ctx context.Context) error {
	iter := r.redis.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached views: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.redis.Del(ctx, keys...).Err()
}

// Close closes the Redis connection
func (r *RedisRemote) Close() error {
	return r.redis.Close()
}
