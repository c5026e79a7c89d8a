package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/async"
)

func TestAsyncAwait(t *testing.T) {
	t.Parallel()

	f := async.Async(context.Background(), "u1", func(_ context.Context, uid string) (string, error) {
		return "profile:" + uid, nil
	})
	res, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, "profile:u1", res)
}

func TestAsyncCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	f := async.Async(ctx, 1, func(context.Context, int) (int, error) {
		called = true
		return 1, nil
	})
	_, err := f.Await()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAwaitContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		<-block
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.AwaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	double := func(_ context.Context, n int) (int, error) {
		if n < 0 {
			return 0, boom
		}
		return n * 2, nil
	}

	ctx := context.Background()
	res, err := async.WaitAll(async.Async(ctx, 1, double), async.Async(ctx, 2, double))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, res)

	res, err = async.WaitAll(async.Async(ctx, 1, double), async.Async(ctx, -1, double), async.Async(ctx, 3, double))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 6, res[2])
}

func TestMap(t *testing.T) {
	t.Parallel()

	t.Run("keeps order and bounds concurrency", func(t *testing.T) {
		t.Parallel()
		var inFlight, peak atomic.Int32
		items := []int{1, 2, 3, 4, 5, 6, 7, 8}

		res, err := async.Map(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return n * n, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, res)
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("returns first error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("firestore unavailable")
		_, err := async.Map(context.Background(), []string{"a", "b", "c"}, 2, func(_ context.Context, s string) (string, error) {
			if s == "b" {
				return "", boom
			}
			return s, nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		res, err := async.Map(context.Background(), []int(nil), 4, func(_ context.Context, n int) (int, error) { return n, nil })
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}
