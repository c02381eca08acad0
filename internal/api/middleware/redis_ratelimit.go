package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"customer-registry/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisRateLimitWindow = 1 * time.Second

// windowCounter counts hits for key inside a fixed window that starts on the
// first hit.
type windowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisWindowCounter struct {
	client *redis.Client
}

func (c redisWindowCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count, err := incrCmd.Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}

	// -1 means no expiry, -2 a key that vanished between INCR and TTL.
	if ttl, err := ttlCmd.Result(); err == nil && ttl < 0 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count, nil
}

// RedisRateLimiterMiddleware shares one fixed window per client IP across
// every instance pointed at the same Redis. Redis failures let the request
// through.
type RedisRateLimiterMiddleware struct {
	counter windowCounter
	limit   int64
	window  time.Duration
	enabled bool
	logger  *slog.Logger
}

func NewRedisRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RedisRateLimiterMiddleware {
	logger = logger.With("component", "RedisRateLimiter")

	var counter windowCounter
	enabled := cfg.Enabled
	if redisClient == nil {
		if enabled {
			logger.Warn("Rate limiting enabled but no Redis client provided; disabling.")
		}
		enabled = false
	} else {
		counter = redisWindowCounter{client: redisClient}
	}

	return newRedisRateLimiter(cfg, counter, enabled, logger)
}

func newRedisRateLimiter(cfg config.RateLimitConfig, counter windowCounter, enabled bool, logger *slog.Logger) *RedisRateLimiterMiddleware {
	limit := int64(math.Ceil(cfg.RPS))
	if int64(cfg.Burst) > limit {
		limit = int64(cfg.Burst)
	}
	if limit < 1 {
		limit = 1
	}

	return &RedisRateLimiterMiddleware{
		counter: counter,
		limit:   limit,
		window:  redisRateLimitWindow,
		enabled: enabled,
		logger:  logger,
	}
}

func (rl *RedisRateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		key := "ratelimit:" + ip

		count, err := rl.counter.Incr(r.Context(), key, rl.window)
		if err != nil {
			rl.logger.ErrorContext(r.Context(), "Redis rate limit check failed", "error", err, "ip", ip)
			if count == 0 {
				next.ServeHTTP(w, r)
				return
			}
		}

		if count > rl.limit {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip, "count", count, "limit", rl.limit)
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
