package rate

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageguard/internal/testutil"
)

func TestOTPLimiter(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewOTPLimiter(client, RateLimit{Window: 10 * time.Minute, MaxRequests: 3})
	limiter.now = func() time.Time { return clock }

	t.Run("allows up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(ctx, "ann@example.com")
			require.NoError(t, err)
			assert.True(t, ok, "attempt %d", i+1)
			clock = clock.Add(time.Second)
		}

		ok, err := limiter.Allow(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		ok, err := limiter.Allow(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("window slides", func(t *testing.T) {
		clock = clock.Add(11 * time.Minute)
		ok, err := limiter.Allow(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestOTPLimiterRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	limiter := NewOTPLimiter(client, RateLimit{Window: time.Minute, MaxRequests: 1})
	ok, err := limiter.Allow(context.Background(), "ann@example.com")
	assert.Error(t, err)
	assert.False(t, ok)
}
