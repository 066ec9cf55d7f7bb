package router

import (
	"lugares/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	SetupRestaurantRouter(e)
	SetupRatingRouter(e, authMiddleware, rateLimit)
	SetupCommentRouter(e, authMiddleware, rateLimit)
	SetupWebSocketRouter(e)
	SetupHealthRouter(e)
}
