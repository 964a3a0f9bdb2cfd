package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/favorite-products/pkg/logger"
)

// RateLimiter implements rate limiting using a Redis sliding window
type RateLimiter struct {
	redis       *redis.Client
	maxRequests int           // Maximum requests allowed
	window      time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:       redisClient,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Middleware returns the rate limiting middleware. The identifier function
// picks the bucket key for a request (user id when authenticated, client IP
// otherwise).
func (rl *RateLimiter) Middleware(identify func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// No Redis configured: rate limiting is disabled
			if rl == nil || rl.redis == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := identify(r)

			allowed, remaining, resetTime, err := rl.checkLimit(r.Context(), identifier)
			if err != nil {
				logger.Logger.Error().
					Err(err).
					Str("identifier", identifier).
					Msg("Rate limiter error")
				// On error, allow the request but log it
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.maxRequests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))

			if !allowed {
				logger.Logger.Warn().
					Str("identifier", identifier).
					Int("limit", rl.maxRequests).
					Msg("Rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":       "Rate limit exceeded",
					"message":     fmt.Sprintf("Too many requests. Try again in %v", time.Until(resetTime).Round(time.Second)),
					"retry_after": time.Until(resetTime).Seconds(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkLimit checks if a request is within the rate limit using a sliding window
func (rl *RateLimiter) checkLimit(ctx context.Context, identifier string) (bool, int, time.Time, error) {
	key := fmt.Sprintf("ratelimit:%s", identifier)
	now := time.Now()
	windowStart := now.Add(-rl.window)

	pipe := rl.redis.Pipeline()

	// Drop entries that fell out of the window, count what is left, record
	// the current request and refresh the key TTL in one round trip
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, rl.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(countCmd.Val())
	resetTime := now.Add(rl.window)

	if count >= rl.maxRequests {
		return false, 0, resetTime, nil
	}

	remaining := rl.maxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, resetTime, nil
}
