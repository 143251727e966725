package cache

import (
	"context"
	"errors"
	"time"

	sharedredis "newsflow/backend/shared/redis"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cache entries in Redis under a common key prefix
type RedisStore struct {
	client *sharedredis.RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client; every entry expires after ttl
func NewRedisStore(client *sharedredis.RedisClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
