package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/opsdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyLoginClient = "auth:login:client:%s"
	keyLoginEmail  = "auth:login:email:%s"
)

// LoginLimiter throttles login attempts per client address and per email.
// A nil limiter allows everything.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLoginLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*LoginLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	log.Named("ratelimit").Info("login rate limiting enabled",
		zap.Float64("rate", limitCfg.LoginRate),
		zap.Int("burst", limitCfg.LoginBurst),
	)

	return NewLoginLimiterWithClient(client, limitCfg.LoginRate, limitCfg.LoginBurst)
}

func NewLoginLimiterWithClient(client redis.Scripter, rate float64, burst int) (*LoginLimiter, error) {
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}
	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}, nil
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one attempt for both the client address and the email.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP, email string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginClient, strings.TrimSpace(clientIP)), l.rate, l.burst)
	if err != nil || !res.Allowed {
		return res, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return res, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginEmail, email), l.rate, l.burst)
}
