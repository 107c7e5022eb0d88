package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the durable shared counter store for multi-instance
// deployments. Timestamps are stored as a JSON array under a prefixed key
// with a TTL equal to the window, so idle keys expire server-side.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a counter store over an existing Redis client
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get returns the recorded timestamps for the key, empty if the key is
// absent or expired
func (s *RedisStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var stamps []time.Time
	if err := json.Unmarshal([]byte(data), &stamps); err != nil {
		return nil, fmt.Errorf("failed to decode rate counter entry: %w", err)
	}
	return stamps, nil
}

// Set overwrites the key's timestamps with the window as TTL
func (s *RedisStore) Set(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return fmt.Errorf("failed to encode rate counter entry: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
