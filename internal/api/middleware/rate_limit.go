package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

// RateLimiter sliding-window counter, implemented by pkg/redis.Client
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit limits requests per client IP and route.
// A nil limiter or a limiter error lets the request through.
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
