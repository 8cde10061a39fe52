package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/cart"
)

const redisPrefix = "storefront"

// RedisKV keeps per-session records under "storefront:<sid>:<key>".
type RedisKV struct {
	client *redis.Client

	// TTL is applied on every write; zero keeps records until deleted.
	TTL time.Duration
}

func NewRedisKV(ctx context.Context, url string) (*RedisKV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisKV{client: client}, nil
}

func NewRedisKVFromClient(client *redis.Client) *RedisKV { return &RedisKV{client: client} }

func (r *RedisKV) ForSession(sid string) cart.Storage {
	return &sessionRedis{r: r, sid: sid}
}

func (r *RedisKV) Close() error { return r.client.Close() }

func redisKey(sid, key string) string {
	return redisPrefix + ":" + sid + ":" + key
}

type sessionRedis struct {
	r   *RedisKV
	sid string
}

func (s *sessionRedis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.r.client.Get(ctx, redisKey(s.sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sessionRedis) Set(ctx context.Context, key, value string) error {
	return s.r.client.Set(ctx, redisKey(s.sid, key), value, s.r.TTL).Err()
}

func (s *sessionRedis) Delete(ctx context.Context, key string) error {
	return s.r.client.Del(ctx, redisKey(s.sid, key)).Err()
}
