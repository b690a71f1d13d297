package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisStore implements Store on top of a shared go-redis client.
type RedisStore struct {
	cli *redis.Client
}

func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cli.SetEx(ctx, key, value, ttl).Err()
}

// DeletePattern removes every key matching the glob pattern. Keys are
// collected with SCAN rather than KEYS so large keyspaces do not block the
// server.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.cli.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := s.cli.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (s *RedisStore) AddToTag(ctx context.Context, tag, key string, ttl time.Duration) error {
	if err := s.cli.SAdd(ctx, tag, key).Err(); err != nil {
		return err
	}
	// Membership records expire on their own so abandoned tags do not leak.
	return s.cli.Expire(ctx, tag, ttl).Err()
}

func (s *RedisStore) TagMembers(ctx context.Context, tag string) ([]string, error) {
	return s.cli.SMembers(ctx, tag).Result()
}

func (s *RedisStore) DeleteTag(ctx context.Context, tag string, keys []string) error {
	if len(keys) > 0 {
		if err := s.cli.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return s.cli.Del(ctx, tag).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}
