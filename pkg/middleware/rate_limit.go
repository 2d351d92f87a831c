package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// RateLimiter is a fixed-window limiter keyed by client IP. Counters live in
// the cache so that limits hold across instances when Redis is configured.
type RateLimiter struct {
	store  cache.Client
	limit  int
	window time.Duration
	prefix string
	logger *slog.Logger
}

// NewRateLimiter allows limit requests per window.
func NewRateLimiter(store cache.Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		logger: logger,
	}
}

// Middleware returns a Gin middleware that enforces rate limiting.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.prefix + c.ClientIP()
		count, err := rl.store.IncrementWindow(c.Request.Context(), key, rl.window)
		if err != nil {
			// fail open when the counter store is unreachable
			rl.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			c.Next()
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", apperrors.ErrTooMany)
			return
		}
		c.Next()
	}
}
