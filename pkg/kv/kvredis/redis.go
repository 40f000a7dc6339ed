// Package kvredis implements kv.Store over Redis, reusing the
// Lua-script-for-atomicity idiom jobxredis uses to promote scheduled jobs:
// the sliding-window prune-then-count is one round trip, not a race between
// a DEL and a COUNT.
package kvredis

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRegistry = errx.NewRegistry("KV")

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to set key", errx.TypeInternal).WithDetail("key", key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, errx.Wrap(err, "failed to get key", errx.TypeInternal).WithDetail("key", key)
	}
	return val, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errx.Wrap(err, "failed to delete key", errx.TypeInternal).WithDetail("key", key)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, errx.Wrap(err, "failed to check key existence", errx.TypeInternal).WithDetail("key", key)
	}
	return n > 0, nil
}

// recordScript prunes entries older than the window, adds the current
// occurrence, resets the key's expiry to the window, and returns the
// remaining count — all atomically so concurrent callers never observe a
// half-pruned window.
var recordScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local member = ARGV[3]
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window_ms)
return redis.call('ZCARD', key)
`)

func (s *Store) RecordEvent(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now().UnixMilli()
	member := uuid.New().String()
	count, err := recordScript.Run(ctx, s.rdb,
		[]string{key},
		now, window.Milliseconds(), member,
	).Int64()
	if err != nil {
		return 0, errx.Wrap(err, "failed to record sliding-window event", errx.TypeInternal).WithDetail("key", key)
	}
	return count, nil
}

var countScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)
return redis.call('ZCARD', key)
`)

func (s *Store) CountEvents(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now().UnixMilli()
	count, err := countScript.Run(ctx, s.rdb,
		[]string{key},
		now, window.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, errx.Wrap(err, "failed to count sliding-window events", errx.TypeInternal).WithDetail("key", key)
	}
	return count, nil
}

func (s *Store) ClearEvents(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errx.Wrap(err, "failed to clear sliding window", errx.TypeInternal).WithDetail("key", key)
	}
	return nil
}
