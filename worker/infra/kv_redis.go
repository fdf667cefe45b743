package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edge-worker/worker/domain"

	"github.com/redis/go-redis/v9"
)

// RedisKV implementa domain.KVStore sobre Redis (GET / SET EX).
//
// Escritas são um único SET, então leitores veem o valor antigo ou o novo,
// nunca um estado parcial.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

type RedisKVOption func(*RedisKV)

// WithKeyPrefix isola as chaves do worker num Redis compartilhado.
func WithKeyPrefix(prefix string) RedisKVOption {
	return func(s *RedisKV) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisKV(rdb *redis.Client, opts ...RedisKVOption) *RedisKV {
	s := &RedisKV{rdb: rdb}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisKV) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get: %v", domain.ErrStoreUnavailable, err)
	}
	return v, true, nil
}

// Put grava com expiração quando ttl > 0; ttl <= 0 grava sem expiração.
func (s *RedisKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisKV) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
