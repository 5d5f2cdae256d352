package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed window counter kept in Redis, so every instance
// behind a load balancer shares the same budget.
type RateLimiter struct {
	redis  redis.Cmdable
	scope  string
	limit  int64
	window time.Duration

	// onDeny is called for every rejected request.
	onDeny func(scope string)
}

func NewRateLimiter(redisClient redis.Cmdable, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		scope:  scope,
		limit:  int64(limit),
		window: window,
	}
}

// OnDeny registers a callback for rejected requests.
func (r *RateLimiter) OnDeny(fn func(scope string)) *RateLimiter {
	r.onDeny = fn
	return r
}

// Allow implements middleware.RateLimiterStore.
func (r *RateLimiter) Allow(identifier string) (bool, error) {
	return r.AllowContext(context.Background(), identifier)
}

// AllowContext counts one request for identifier and reports whether it is
// within the limit.
func (r *RateLimiter) AllowContext(ctx context.Context, identifier string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", r.scope, identifier)

	// INCR and EXPIRE NX share one transaction, so every counter has a TTL.
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("AllowContext: redis.TxPipelined: %w", err)
	}
	count := incr.Val()

	if count > r.limit {
		if r.onDeny != nil {
			r.onDeny(r.scope)
		}
		return false, nil
	}
	return true, nil
}

// EchoMiddleware limits requests per client IP on an echo server.
func (r *RateLimiter) EchoMiddleware() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: r,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "Unable to identify client",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestHandler limits PocketBase requests per authenticated user, falling
// back to the client IP. A Redis outage lets requests through.
func (r *RateLimiter) RequestHandler() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		allowed, err := r.AllowContext(e.Request.Context(), requestIdentity(e))
		if err != nil {
			e.App.Logger().Warn("rate limiter unavailable", "scope", r.scope, "error", err)
			return e.Next()
		}
		if !allowed {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return e.Next()
	}
}

func requestIdentity(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	return "ip:" + e.RealIP()
}
