package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prperemyshlev/videotube-service/pkg/database"
)

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records a request under key and reports whether it fits in the sliding window.
// When the limit is exceeded, retryAfter is the time until the oldest entry leaves the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	windowStart := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", windowStart)
		count = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	if count.Val() >= int64(limit) {
		var retryAfter time.Duration
		if entries := oldest.Val(); len(entries) > 0 {
			oldestAt := time.UnixMilli(int64(entries[0].Score))
			retryAfter = window - now.Sub(oldestAt)
		}
		return false, retryAfter, nil
	}

	_, err = r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: uuid.NewString(),
		})
		pipe.Expire(ctx, redisKey, window+time.Minute)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to record request: %w", err)
	}

	return true, 0, nil
}

// Check runs Allow and reports a rejection as a KindRateLimited error.
// Redis failures come back as KindInternal.
func (r *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) error {
	allowed, retryAfter, err := r.Allow(ctx, key, limit, window)
	if err != nil {
		return internalError("Rate limiter unavailable", err)
	}
	if !allowed {
		return rateLimitedError(retryAfter)
	}
	return nil
}
