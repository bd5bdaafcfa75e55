package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Middleware limits requests per client IP on the wrapped routes. With no
// limiter configured it is a no-op; redis failures fail open so the payment
// page never goes down with the cache.
func Middleware(bucket *TokenBucket, log *zap.Logger, name string, rate float64, burst int) gin.HandlerFunc {
	if bucket == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.Named("ratelimit")

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		result, err := bucket.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "Too many requests. Please slow down.",
				},
			})
			return
		}
		c.Next()
	}
}
