package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lugares/internal/domain/repository"
)

const readinessTimeout = 3 * time.Second

type HealthHandler struct {
	store    repository.DocumentStore
	strategy string
}

func NewHealthHandler(store repository.DocumentStore, strategy string) *HealthHandler {
	return &HealthHandler{
		store:    store,
		strategy: strategy,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":          "ok",
		"rating_strategy": h.strategy,
		"time":            time.Now().UTC().Format(time.RFC3339),
	})
}

// CheckReadiness probes the document store. A missing probe document still
// proves the store answered.
func (h *HealthHandler) CheckReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	_, err := h.store.Get(ctx, repository.RestaurantsCollection, "_healthcheck")
	if err != nil && !errors.Is(err, repository.ErrDocumentNotFound) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "document store unavailable",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
