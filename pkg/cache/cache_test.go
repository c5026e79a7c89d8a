package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/cache"
)

func TestLRU(t *testing.T) {
	t.Parallel()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[int](2)
		c.Put("a", 1, 0)
		c.Put("b", 2, 0)
		_, _ = c.Get("a")
		c.Put("c", 3, 0)

		_, ok := c.Get("b")
		assert.False(t, ok)
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("expires entries", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		c := cache.NewLRU[string](4)
		c.SetClock(func() time.Time { return now })
		c.Put("k", "v", time.Minute)

		_, ok := c.Get("k")
		assert.True(t, ok)

		now = now.Add(time.Minute)
		_, ok = c.Get("k")
		assert.False(t, ok)
		assert.Zero(t, c.Len())
	})

	t.Run("overwrite refreshes value", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string](2)
		c.Put("k", "old", 0)
		c.Put("k", "new", 0)
		v, _ := c.Get("k")
		assert.Equal(t, "new", v)
		assert.Equal(t, 1, c.Len())

		c.Remove("k")
		assert.Zero(t, c.Len())
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.NewLRU[int](0) })
	})

	t.Run("concurrent use", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[int](16)
		var wg sync.WaitGroup
		for i := range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprint(i % 20)
				c.Put(key, i, time.Hour)
				_, _ = c.Get(key)
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, c.Len(), 16)
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := cache.NewMemory(8)

	type greeting struct {
		Title string `json:"greetingTitle"`
	}
	require.NoError(t, m.SetJSON(ctx, "copy:greeting:abc", greeting{Title: "Olá"}, time.Hour))

	var got greeting
	found, err := m.GetJSON(ctx, "copy:greeting:abc", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Olá", got.Title)

	found, err = m.GetJSON(ctx, "copy:greeting:missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Error(t, m.SetJSON(ctx, "bad", make(chan int), time.Hour))
}
