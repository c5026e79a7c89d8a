package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a namespaced JSON key-value wrapper around a Redis client.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{db: client, prefix: prefix}
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v at key with the given TTL. A zero TTL means no expiry.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Claim sets key only if it is absent. It reports true for the first caller.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.db.SetNX(ctx, s.prefix+key, time.Now().Unix(), ttl).Result()
}

// Client exposes the underlying client for scripts and pipelines.
func (s *Store) Client() redis.UniversalClient {
	return s.db
}

// Key returns the namespaced form of key.
func (s *Store) Key(key string) string {
	return s.prefix + key
}
