package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/roamkit/roamkit/internal/config"
)

const keyAPIRequest = "api:request:%s"

// APILimiter throttles public API traffic per API key. A nil limiter (rate
// limiting disabled) allows everything.
type APILimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewAPILimiter(cfg config.Config) (*APILimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.APIRate <= 0 || limitCfg.APIBurst <= 0 {
		return nil, errors.New("api rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &APILimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.APIRate,
		burst:   limitCfg.APIBurst,
	}, nil
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *APILimiter) Allow(ctx context.Context, apiKeyID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAPIRequest, strings.TrimSpace(apiKeyID)), l.rate, l.burst)
}
