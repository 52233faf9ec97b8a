package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, burst int) *LoginLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewLoginLimiterWithClient(client, 0.01, burst)
	require.NoError(t, err)
	return limiter
}

func TestLoginLimiterExhaustsBurst(t *testing.T) {
	limiter := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1", "")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i+1)
	}

	res, err := limiter.Allow(ctx, "10.0.0.1", "")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}

func TestLoginLimiterKeysByEmailAcrossClients(t *testing.T) {
	limiter := newTestLimiter(t, 2)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "10.0.0.1", "Admin@Example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = limiter.Allow(ctx, "10.0.0.2", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "10.0.0.3", "admin@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.Allow(ctx, "10.0.0.4", "someone@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *LoginLimiter

	res, err := limiter.Allow(context.Background(), "10.0.0.1", "a@example.com")

	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewLoginLimiterRejectsBadRate(t *testing.T) {
	_, err := NewLoginLimiterWithClient(nil, 0, 5)
	assert.Error(t, err)
}
