package cache

import "time"

// SetClock swaps the clock used for expiry.
func (c *LRU[V]) SetClock(now func() time.Time) { c.now = now }
