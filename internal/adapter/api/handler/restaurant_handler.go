package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"lugares/internal/usecase"
	"lugares/pkg/response"
	"lugares/pkg/utils"
)

type RestaurantHandler struct {
	restaurantUseCase *usecase.RestaurantUseCase
}

func NewRestaurantHandler(restaurantUseCase *usecase.RestaurantUseCase) *RestaurantHandler {
	return &RestaurantHandler{
		restaurantUseCase: restaurantUseCase,
	}
}

func (h *RestaurantHandler) ListRestaurants(c echo.Context) error {
	filter := usecase.RestaurantFilter{
		Query:      c.QueryParam("q"),
		Category:   c.QueryParam("category"),
		Delivery:   boolQuery(c, "delivery"),
		Vouchers:   boolQuery(c, "vouchers"),
		Vegetarian: boolQuery(c, "vegetarian"),
		Mappable:   boolQuery(c, "mappable"),
	}
	page := utils.GetPaginationParams(c)

	restaurants, total, err := h.restaurantUseCase.ListRestaurants(c.Request().Context(), filter, page)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, restaurants, total, page.Page, page.PageSize)
}

func (h *RestaurantHandler) GetRestaurant(c echo.Context) error {
	restaurant, err := h.restaurantUseCase.GetRestaurant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, restaurant)
}

func (h *RestaurantHandler) ListCategories(c echo.Context) error {
	categories, err := h.restaurantUseCase.ListCategories(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, categories)
}

func boolQuery(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	return err == nil && v
}
