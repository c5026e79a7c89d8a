package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Memory stores JSON encoded values in an LRU. It has the same GetJSON and
// SetJSON surface as the Redis store.
type Memory struct {
	lru *LRU[[]byte]
}

func NewMemory(capacity int) *Memory {
	return &Memory{lru: NewLRU[[]byte](capacity)}
}

// GetJSON decodes the value under key into dst. found is false for missing
// and expired keys.
func (m *Memory) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.lru.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) SetJSON(_ context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.lru.Put(key, raw, ttl)
	return nil
}
