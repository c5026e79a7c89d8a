package copywriter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
)

// Cache is the JSON key-value store Cached reads through.
// *redis.Store from pkg/redis satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

var _ Generator = (*Cached)(nil)

// Cached memoizes generated copy by flow and input. Cache errors are logged
// and the call goes straight to the wrapped generator.
type Cached struct {
	next  Generator
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCached(next Generator, cache Cache, ttl time.Duration, log *slog.Logger) *Cached {
	if next == nil || cache == nil {
		panic("copywriter: generator and cache are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, log: log.With(logger.Component("copywriter.cache"))}
}

func (c *Cached) HomeGreeting(ctx context.Context, in GreetingInput) (*Greeting, error) {
	return cachedCall(ctx, c, FlowGreeting, in, c.next.HomeGreeting)
}

func (c *Cached) DopamineFeedback(ctx context.Context, in FeedbackInput) (*Feedback, error) {
	return cachedCall(ctx, c, FlowFeedback, in, c.next.DopamineFeedback)
}

func (c *Cached) DASAlert(ctx context.Context, in DASAlertInput) (*DASAlert, error) {
	return cachedCall(ctx, c, FlowDASAlert, in, c.next.DASAlert)
}

func cachedCall[In, Out any](ctx context.Context, c *Cached, flow string, in In, fn func(context.Context, In) (*Out, error)) (*Out, error) {
	key, err := cacheKey(flow, in)
	if err != nil {
		return fn(ctx, in)
	}

	var hit Out
	found, err := c.cache.GetJSON(ctx, key, &hit)
	if err != nil {
		c.log.WarnContext(ctx, "copy cache read failed",
			slog.String("flow", flow),
			logger.Error(err))
	}
	if found {
		metrics.IncCopyCache(flow, "hit")
		return &hit, nil
	}
	metrics.IncCopyCache(flow, "miss")

	out, err := fn(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, out, c.ttl); err != nil {
		c.log.WarnContext(ctx, "copy cache write failed",
			slog.String("flow", flow),
			logger.Error(err))
	}
	return out, nil
}

func cacheKey(flow string, in any) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "copy:" + flow + ":" + hex.EncodeToString(sum[:16]), nil
}
