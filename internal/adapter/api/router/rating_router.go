package router

import (
	"lugares/internal/adapter/api/handler"
	"lugares/internal/adapter/api/middleware"
	"lugares/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupRatingRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	ratingHandler := handler.GetRatingHandler()

	ratings := e.Group("/v1/restaurants/:id/rating")
	ratings.Use(authMiddleware.Authenticate)

	ratings.PUT("", ratingHandler.SubmitRating, rateLimit.Action(ratelimit.ActionSubmitRating))
	ratings.GET("/me", ratingHandler.GetMyRating)
}
