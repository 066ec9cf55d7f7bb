package handler

import (
	"lugares/internal/domain/repository"
	ws "lugares/internal/infrastructure/websocket"
	"lugares/internal/usecase"
)

var (
	restaurantHandler *RestaurantHandler
	ratingHandler     *RatingHandler
	commentHandler    *CommentHandler
	healthHandler     *HealthHandler
	webSocketHandler  *WebSocketHandler
)

func Setup(
	restaurantUseCase *usecase.RestaurantUseCase,
	ratingUseCase *usecase.RatingUseCase,
	commentUseCase *usecase.CommentUseCase,
	store repository.DocumentStore,
	wsManager *ws.Manager,
	allowedOrigins []string,
) {
	restaurantHandler = NewRestaurantHandler(restaurantUseCase)
	ratingHandler = NewRatingHandler(ratingUseCase)
	commentHandler = NewCommentHandler(commentUseCase)
	healthHandler = NewHealthHandler(store, ratingUseCase.Strategy())
	webSocketHandler = NewWebSocketHandler(wsManager, allowedOrigins)
}

func GetRestaurantHandler() *RestaurantHandler {
	return restaurantHandler
}

func GetRatingHandler() *RatingHandler {
	return ratingHandler
}

func GetCommentHandler() *CommentHandler {
	return commentHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}
