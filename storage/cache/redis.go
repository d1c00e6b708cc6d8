package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

const keyPrefix = "idempotency:"

// RedisStore claims idempotency keys with SETNX.
type RedisStore struct {
	client *redis.Client
}

var _ payment.IdempotencyStore = (*RedisStore)(nil) // interface compliance check

func NewRedisClient(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "claiming key")
	}
	return ok, nil
}

func (s *RedisStore) Extend(ctx context.Context, key string, ttl time.Duration) error {
	err := s.client.Set(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
	return errors.Wrap(err, "extending key")
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, keyPrefix+key).Err(), "releasing key")
}
