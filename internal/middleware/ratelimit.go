package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"school-service/pkg/logger"
	"school-service/prometheus"
)

// Limiter counts hits against a key within a rolling window.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter keeps the counters on a shared redis instance so the limit
// holds across service replicas.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Hit increments the key, starting the expiry window on its first hit.
func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

// RateLimitMiddleware caps requests per client IP within a window. It guards
// the credential endpoints, where unbounded guessing is the threat. A limiter
// fault fails open: login availability beats strict limiting.
func RateLimitMiddleware(l Limiter, max int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			count, err := l.Hit(c.Request().Context(), "ratelimit:"+c.RealIP(), window)
			if err != nil {
				logger.FromEcho(c).Warn("Rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if count > max {
				prometheus.RecordAuthError("rate_limited")
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
