package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/workshop-bookings/internal/adapters/redis"
)

type RateLimiter struct {
	redis  *redisadapter.Cache
	rate   int
	period time.Duration
}

func NewRateLimiter(redis *redisadapter.Cache, rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{redis: redis, rate: rate, period: period}
}

// Allow counts one hit for key. It fails open when redis is unreachable.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	n, err := rl.redis.IncrWindow(ctx, "rl:"+key, rl.period)
	if err != nil {
		return true
	}
	return n <= int64(rl.rate)
}
