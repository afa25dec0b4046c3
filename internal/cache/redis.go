package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fetchkit:cache:"

// RedisStore keeps each record as one string value. Redis expires the
// value on its own once the TTL passes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

func OpenRedisStore(ctx context.Context, addr string, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) Load(ctx context.Context, key string) (Record, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get cache record: %w", err)
	}

	record, err := decodeRecord(key, data)
	if err != nil {
		return Record{}, true, err
	}
	return record, true, nil
}

// Save writes the record. A record that already exists keeps its remaining
// expiry, so refreshing hit counters never extends its life.
func (s *RedisStore) Save(ctx context.Context, record Record) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, s.prefix+record.Key).Result()
	if err != nil {
		return fmt.Errorf("failed to check cache record: %w", err)
	}
	expiration := record.TTL
	if exists > 0 && record.HitCount > 0 {
		expiration = redis.KeepTTL
	}

	if err := s.client.Set(ctx, s.prefix+record.Key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache record: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	return len(keys), err
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
