package redis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Storage keeps cache entries in Redis so several instances can share them.
type Storage struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewStorage(client redis.UniversalClient, prefix string) *Storage {
	return &Storage{
		rdb:    client,
		prefix: prefix,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, prefix string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient, prefix), nil
}

func (s *Storage) key(key string) string {
	return s.prefix + strings.ToLower(key)
}

// Get treats Redis failures as a miss so the caller falls through to upstream.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool) {
	const op = "storage.redis.Get"

	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("redis get failed", "op", op, "key", key, "error", err)
		}
		return nil, false
	}

	return val, true
}

func (s *Storage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "storage.redis.Set"

	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}
