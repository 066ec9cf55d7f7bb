package middleware

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"lugares/internal/infrastructure/ratelimit"
	"lugares/pkg/errors"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
	logger  *slog.Logger
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// General limits every request. Callers identified by Optional get their own
// budget, anonymous ones share one per client IP.
func (m *RateLimitMiddleware) General() echo.MiddlewareFunc {
	return m.Action(ratelimit.ActionAPI)
}

// Action limits one kind of request per caller.
func (m *RateLimitMiddleware) Action(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return m.check(c, callerKey(c), action, next)
		}
	}
}

func callerKey(c echo.Context) string {
	if key := IdentityFromContext(c).Key(); key != "" {
		return "user:" + key
	}
	return "ip:" + c.RealIP()
}

func (m *RateLimitMiddleware) check(c echo.Context, caller, action string, next echo.HandlerFunc) error {
	allowed, retryAfter := m.limiter.Allow(caller, action)
	if allowed {
		return next(c)
	}

	m.logger.WarnContext(c.Request().Context(), "rate limit exceeded",
		slog.String("caller", caller),
		slog.String("action", action),
		slog.Duration("retry_after", retryAfter),
	)
	c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	return errors.TooManyRequests("too many requests, slow down")
}
