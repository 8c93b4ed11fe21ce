package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jobapply:session:"

// RedisStore keeps sessions as JSON values with a TTL refreshed on every save.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL and verifies it answers PING.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// Get returns the session or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (ApplicationContext, error) {
	data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ApplicationContext{}, ErrNotFound
	}
	if err != nil {
		return ApplicationContext{}, fmt.Errorf("redis get session: %w", err)
	}
	var ac ApplicationContext
	if err := json.Unmarshal(data, &ac); err != nil {
		return ApplicationContext{}, fmt.Errorf("decode session: %w", err)
	}
	return ac, nil
}

// Save stores the session.
func (s *RedisStore) Save(ctx context.Context, ac ApplicationContext) error {
	data, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(ac.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Ping reports whether redis answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

var _ Store = (*RedisStore)(nil)
