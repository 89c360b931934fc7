package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter checks fixed-window request budgets.
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimitService counts requests per key in Redis.
type RateLimitService struct {
	redis     redis.Cmdable
	keyPrefix string
}

func NewRateLimitService(client redis.Cmdable) *RateLimitService {
	return &RateLimitService{
		redis:     client,
		keyPrefix: "treebites:rate_limit:",
	}
}

// CheckLimit counts one request against key. When the budget is spent it
// returns false and the time until the window resets.
func (s *RateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	rKey := s.keyPrefix + key

	count, err := s.redis.Incr(ctx, rKey).Result()
	if err != nil {
		return false, 0, err
	}
	// Only the first hit in a window sets the expiry.
	if count == 1 {
		if err := s.redis.Expire(ctx, rKey, window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(limit) {
		ttl, err := s.redis.TTL(ctx, rKey).Result()
		if err != nil {
			return false, 0, err
		}
		// -1 means the key outlived a failed Expire; give it the window
		// again so the budget cannot stay spent forever.
		if ttl == -1 {
			if err := s.redis.Expire(ctx, rKey, window).Err(); err != nil {
				return false, 0, err
			}
		}
		if ttl < 0 {
			ttl = window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
