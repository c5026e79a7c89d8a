package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type memBucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// MemoryStore keeps buckets in process. It is used when Redis is not
// configured, so limits are per instance.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
	now     func() time.Time

	sweepEvery time.Duration
	idleTTL    time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are swept. Zero disables
// the sweeper goroutine.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) { ms.sweepEvery = d }
}

// WithIdleTTL sets how long an untouched bucket is kept.
func WithIdleTTL(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.idleTTL = d
		}
	}
}

func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:    make(map[string]*memBucket),
		now:        time.Now,
		sweepEvery: 5 * time.Minute,
		idleTTL:    time.Hour,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.sweepEvery > 0 {
		go ms.sweep()
	}
	return ms
}

func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, ok := ms.buckets[key]
	if !ok {
		b = &memBucket{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}
	b.tokens, b.lastRefill = refill(b.tokens, b.lastRefill, now, cfg)
	b.lastSeen = now

	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}
	return remaining, b.lastRefill.Add(cfg.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.buckets, key)
	ms.mu.Unlock()
	return nil
}

// Len is the number of tracked keys.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

// Sweep drops buckets idle for longer than the idle TTL.
func (ms *MemoryStore) Sweep() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	cutoff := ms.now().Add(-ms.idleTTL)
	for key, b := range ms.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(ms.buckets, key)
		}
	}
}

func (ms *MemoryStore) sweep() {
	ticker := time.NewTicker(ms.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ms.Sweep()
		case <-ms.done:
			return
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.done) })
}
