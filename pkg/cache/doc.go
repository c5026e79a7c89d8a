// Package cache is a bounded in-process cache for generated copy. It backs
// copywriter.Cached when Redis is not configured.
//
//	c := cache.NewMemory(1000)
//	gen = copywriter.NewCached(gen, c, 6*time.Hour, log)
//
// Entries expire after their TTL and the least recently used entry is
// evicted once the capacity is reached.
package cache
