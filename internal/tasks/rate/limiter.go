package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window      time.Duration // e.g., 10 minutes
	MaxRequests int           // max requests per window
}

// OTPLimiter is a sliding-window limiter over a Redis sorted set, one set per identifier.
type OTPLimiter struct {
	redis  *redis.Client
	prefix string
	limit  RateLimit
	now    func() time.Time
}

func NewOTPLimiter(client *redis.Client, limit RateLimit) *OTPLimiter {
	return &OTPLimiter{
		redis:  client,
		prefix: "pageguard:otp",
		limit:  limit,
		now:    time.Now,
	}
}

// Allow records an attempt for identifier and reports whether it fits in the window.
// Rejected attempts are recorded too.
func (l *OTPLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, identifier)

	now := l.now().UnixNano()
	windowStart := now - l.limit.Window.Nanoseconds()

	pipe := l.redis.TxPipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))

	// Count current window
	count := pipe.ZCard(ctx, key)

	// Add new entry
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})

	// Set expiration
	pipe.Expire(ctx, key, l.limit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return count.Val() < int64(l.limit.MaxRequests), nil
}
