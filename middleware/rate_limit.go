package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit throttles requests per client IP using a fixed Redis window.
// With a nil client (Redis unconfigured) the middleware is a pass-through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "rate_limit:" + c.ClientIP()

		current, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble must not take order traffic down with it.
			c.Next()
			return
		}

		if current == 1 {
			rdb.Expire(ctx, key, window)
		}

		if current > int64(limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests, slow down",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
