package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "binbill:upload:"

// RedisStore keeps sessions in Redis so any instance behind the load
// balancer can serve a preview or accept its confirmation.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func claimKey(id uuid.UUID) string {
	return keyPrefix + id.String() + ":claim"
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, key(id), claimKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Claim uses SET NX so exactly one caller across all instances wins.
func (r *RedisStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := r.client.SetNX(ctx, claimKey(id), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim session %s: %w", id, err)
	}
	return ok, nil
}

func (r *RedisStore) Release(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, claimKey(id)).Err(); err != nil {
		return fmt.Errorf("release session %s: %w", id, err)
	}
	return nil
}
