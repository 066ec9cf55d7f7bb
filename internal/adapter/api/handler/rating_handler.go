package handler

import (
	"github.com/labstack/echo/v4"

	"lugares/internal/adapter/api/middleware"
	"lugares/internal/usecase"
	"lugares/pkg/response"
)

type RatingHandler struct {
	ratingUseCase *usecase.RatingUseCase
}

func NewRatingHandler(ratingUseCase *usecase.RatingUseCase) *RatingHandler {
	return &RatingHandler{
		ratingUseCase: ratingUseCase,
	}
}

type submitRatingRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

type userRatingResponse struct {
	Rated bool `json:"rated"`
	Value int  `json:"value,omitempty"`
}

func (h *RatingHandler) SubmitRating(c echo.Context) error {
	var req submitRatingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.ratingUseCase.SubmitRating(
		c.Request().Context(),
		c.Param("id"),
		middleware.IdentityFromContext(c),
		*req.Value,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *RatingHandler) GetMyRating(c echo.Context) error {
	value, rated, err := h.ratingUseCase.GetUserRating(
		c.Request().Context(),
		c.Param("id"),
		middleware.IdentityFromContext(c),
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, userRatingResponse{Rated: rated, Value: value})
}
