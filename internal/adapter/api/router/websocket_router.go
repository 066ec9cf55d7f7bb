package router

import (
	"github.com/labstack/echo/v4"

	"lugares/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the live rating feed. Subscribing needs no token.
func SetupWebSocketRouter(e *echo.Echo) {
	e.GET("/ws/restaurants/:id", handler.GetWebSocketHandler().Subscribe)
}
