package router

import (
	"lugares/internal/adapter/api/handler"

	"github.com/labstack/echo/v4"
)

func SetupRestaurantRouter(e *echo.Echo) {
	restaurantHandler := handler.GetRestaurantHandler()

	e.GET("/v1/restaurants", restaurantHandler.ListRestaurants)
	e.GET("/v1/restaurants/:id", restaurantHandler.GetRestaurant)
	e.GET("/v1/categories", restaurantHandler.ListCategories)
}
