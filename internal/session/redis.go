package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"docassist/internal/chat"
)

const (
	keyPrefix  = "docassist:session:"
	defaultTTL = 24 * time.Hour
)

// RedisStore keeps states in Redis with optimistic locking through
// WATCH/MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, st *chat.State) error {
	now := time.Now()
	st.CreatedAt = now
	st.UpdatedAt = now
	st.Version = 1

	val, err := json.Marshal(st)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(st.ID), val, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Get refreshes the TTL on every read.
func (s *RedisStore) Get(ctx context.Context, id string) (*chat.State, error) {
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var st chat.State
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, err
	}
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return &st, nil
}

func (s *RedisStore) Update(ctx context.Context, st *chat.State) error {
	key := s.key(st.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored chat.State
		if err := json.Unmarshal(val, &stored); err != nil {
			return err
		}
		if stored.Version != st.Version {
			return ErrVersionConflict
		}

		next := *st
		next.Version++
		next.UpdatedAt = time.Now()
		newVal, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		}); err != nil {
			return err
		}
		st.Version, st.UpdatedAt = next.Version, next.UpdatedAt
		return nil
	}, key)
	return watchErr(err)
}

// watchErr reports a write that raced ours between WATCH and EXEC as a
// version conflict.
func watchErr(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return keyPrefix + id
}
