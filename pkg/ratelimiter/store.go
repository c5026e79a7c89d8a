package ratelimiter

import (
	"context"
	"time"
)

type Store interface {
	// ConsumeTokens refills the bucket for elapsed intervals, then takes
	// tokens. A negative remaining means the request is denied.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	Reset(ctx context.Context, key string) error
}

// refill applies the token bucket rules to a stored state. Intervals are
// capped so a long idle period cannot overflow.
func refill(tokens int, lastRefill, now time.Time, config Config) (int, time.Time) {
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := int(min(int64(now.Sub(lastRefill)/config.RefillInterval), maxIntervals))
	if intervals > 0 {
		tokens = min(tokens+intervals*config.RefillRate, config.Capacity)
		lastRefill = now
	}
	return tokens, lastRefill
}
