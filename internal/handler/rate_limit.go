package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/videotube-service/internal/service"
)

// RateLimiter records a request under key and fails with a KindRateLimited
// service error once the window is full
type RateLimiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) error
}

// RateLimitMiddleware rejects requests over limit per window with 429.
// Limiter failures are logged and the request is let through.
func RateLimitMiddleware(limiter RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		err := limiter.Check(c.Request.Context(), key, limit, window)
		if err != nil && service.KindOf(err) != service.KindRateLimited {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))

		if err != nil {
			var limited *service.Error
			if errors.As(err, &limited) {
				c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
			}
			respondError(c, err)
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP
func IPBasedKey(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(ip)
	}
	return c.ClientIP()
}

// RouteAndIPKey limits each route separately per client IP
func RouteAndIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + IPBasedKey(c)
}
