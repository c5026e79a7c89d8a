package ratelimiter

import (
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/clientip"
	"github.com/profepj/profepj/pkg/firebase"
	"github.com/profepj/profepj/pkg/logger"
)

const maxKeyLength = 64

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// UserKey keys by the authenticated Firebase uid.
func UserKey(r *http.Request) string {
	if uid := firebase.UserID(r.Context()); uid != "" {
		return "user:" + uid
	}
	return ""
}

// IPKey keys by client IP.
func IPKey(r *http.Request) string {
	if ip := clientip.GetIP(r); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// Composite joins the non-empty keys. Keys over 64 chars are hashed with
// FNV-1a.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			h := fnv.New64a()
			_, _ = h.Write([]byte(combined))
			return strconv.FormatUint(h.Sum64(), 36)
		}
		return combined
	}
}

// FirstOf returns the first non-empty key.
func FirstOf(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				return key
			}
		}
		return ""
	}
}

var errRateLimited = handler.ErrTooManyRequests.WithMessage("Too many requests")

// Middleware rejects requests over the limit with a JSON 429.
func Middleware(limiter RateLimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Allow(r.Context(), keyFunc(r))
			if err != nil {
				slog.ErrorContext(r.Context(), "rate limit check failed",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				handler.WriteError(w, r, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retryAfter := int(result.RetryAfter().Seconds()); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				handler.WriteError(w, r, errRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
