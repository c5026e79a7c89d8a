package ratelimiter

import (
	"context"
	"errors"
	"fmt"
)

// RateLimiter is what Middleware needs. *Bucket implements it.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Bucket applies one token bucket Config to any number of keys kept in a
// Store.
type Bucket struct {
	store Store
	cfg   Config
}

func NewBucket(store Store, cfg Config) (*Bucket, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, cfg: cfg}, nil
}

// Allow takes one token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.take(ctx, key, 1)
}

// AllowN takes n tokens at once, e.g. for a batch of AI calls.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTokenCount, n)
	}
	return b.take(ctx, key, n)
}

// Status reports the bucket without taking tokens.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return b.take(ctx, key, 0)
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) take(ctx context.Context, key string, n int) (*Result, error) {
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: b.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity %d", c.Capacity))
	}
	if c.RefillRate <= 0 {
		errs = append(errs, fmt.Errorf("refill rate %d", c.RefillRate))
	}
	if c.RefillInterval <= 0 {
		errs = append(errs, fmt.Errorf("refill interval %v", c.RefillInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
