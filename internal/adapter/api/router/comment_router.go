package router

import (
	"lugares/internal/adapter/api/handler"
	"lugares/internal/adapter/api/middleware"
	"lugares/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupCommentRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	commentHandler := handler.GetCommentHandler()

	// Public routes
	e.GET("/v1/restaurants/:id/comments", commentHandler.ListComments)

	// Protected routes (require authentication)
	e.PUT("/v1/restaurants/:id/comments", commentHandler.SubmitComment,
		authMiddleware.Authenticate, rateLimit.Action(ratelimit.ActionSubmitComment))
	e.DELETE("/v1/comments/:commentId", commentHandler.DeleteComment,
		authMiddleware.Authenticate, rateLimit.Action(ratelimit.ActionDeleteComment))
}
