package middleware

import (
	"strconv"
	"time"

	"github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/services"
	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter limits requests to one route per client IP. A failing
// limiter lets the request through.
func EndpointRateLimiter(limiter services.RateLimiter, requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "endpoint:" + c.Request.Method + ":" + c.FullPath() + ":ip:" + c.ClientIP()

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed", "path", c.FullPath(), "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
		if !allowed {
			secs := int(retryAfter.Round(time.Second).Seconds())
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(secs))
			_ = c.Error(errors.RateLimited(strconv.Itoa(secs) + "s"))
			c.Abort()
			return
		}
		c.Next()
	}
}
