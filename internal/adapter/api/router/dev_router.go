package router

import (
	"lugares/internal/adapter/api/handler"
	"lugares/pkg/config"

	"github.com/labstack/echo/v4"
)

// SetupDevRouter only exposes token minting when dev tokens are what the
// server verifies.
func SetupDevRouter(e *echo.Echo, authMode string) {
	if authMode != config.AuthDev {
		return
	}
	handler.SetupDevTokenHandler()
	devTokenHandler := handler.GetDevTokenHandler()

	e.GET("/_dev/token", devTokenHandler.GenerateToken)
}
