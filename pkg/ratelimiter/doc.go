// Package ratelimiter limits the AI copy endpoints per user with a token
// bucket.
//
// Buckets live in memory by default or in Redis when it is configured, so
// several instances share one budget per user:
//
//	store := ratelimiter.NewRedisStore(client, "profepj:rl:")
//	limiter, err := ratelimiter.NewBucket(store, cfg)
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.Composite(ratelimiter.UserKey, ratelimiter.IPKey)))
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset, and answers 429 with Retry-After when the bucket is
// empty.
package ratelimiter
