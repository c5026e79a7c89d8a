package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/ratelimiter"
	"github.com/profepj/profepj/pkg/redis"
)

var cfg = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour}

func TestNewBucket(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewBucket(nil, cfg)
	assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	for _, bad := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(store, bad)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func testBucket(t *testing.T, store ratelimiter.Store) {
	t.Helper()
	ctx := context.Background()
	limiter, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	key := "user:" + uuid.NewString()

	for i := range cfg.Capacity {
		res, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, cfg.Capacity-i-1, res.Remaining)
	}

	res, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Positive(t, res.RetryAfter())

	status, err := limiter.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining, "denied requests do not drain the bucket")

	_, err = limiter.AllowN(ctx, key, 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	require.NoError(t, limiter.Reset(ctx, key))
	res, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, cfg.Capacity-1, res.Remaining)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)
	testBucket(t, store)
}

func TestMemoryStoreRefill(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithMemoryClock(func() time.Time { return now }),
	)
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)

	now = now.Add(time.Minute)
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithIdleTTL(time.Hour),
		ratelimiter.WithMemoryClock(func() time.Time { return now }),
	)
	cfg := ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Minute}
	ctx := context.Background()

	_, _, err := store.ConsumeTokens(ctx, "old", 1, cfg)
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)
	_, _, err = store.ConsumeTokens(ctx, "fresh", 1, cfg)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	store.Sweep()
	assert.Equal(t, 1, store.Len())
	store.Close()
	store.Close()
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: url, RetryAttempts: 1, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	testBucket(t, ratelimiter.NewRedisStore(client, "test:rl:"))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)

	h := ratelimiter.Middleware(limiter, ratelimiter.FirstOf(ratelimiter.UserKey, ratelimiter.IPKey))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
	call := func(uid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/ai/greeting", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		if uid != "" {
			req = req.WithContext(firebase.WithIdentity(req.Context(), firebase.Identity{UID: uid}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := range 2 {
		rec := call("u1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := call("u1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests","code":"too_many_requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, call("u2").Code, "other users have their own bucket")
	assert.Equal(t, http.StatusOK, call("").Code, "anonymous callers fall back to the ip")
}

func TestComposite(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	req = req.WithContext(firebase.WithIdentity(req.Context(), firebase.Identity{UID: "u1"}))

	assert.Equal(t, "user:u1:ip:10.0.0.1", ratelimiter.Composite(ratelimiter.UserKey, ratelimiter.IPKey)(req))

	long := func(*http.Request) string { return string(make([]byte, 80)) }
	key := ratelimiter.Composite(long)(req)
	assert.NotEmpty(t, key)
	assert.LessOrEqual(t, len(key), 13)
}
