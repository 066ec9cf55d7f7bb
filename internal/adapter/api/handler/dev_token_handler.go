package handler

import (
	"github.com/labstack/echo/v4"

	"lugares/internal/infrastructure/firebase"
	"lugares/pkg/errors"
	"lugares/pkg/response"
)

type DevTokenHandler struct{}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler() *DevTokenHandler {
	return &DevTokenHandler{}
}

func SetupDevTokenHandler() {
	devTokenHandler = NewDevTokenHandler()
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

// GenerateToken issues a token the dev verifier accepts for ?uid= and ?email=.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	email := c.QueryParam("email")
	if uid == "" && email == "" {
		return response.Error(c, errors.BadRequest("uid or email is required", nil))
	}

	return response.Success(c, map[string]interface{}{
		"token": firebase.DevToken(uid, email),
		"user": map[string]interface{}{
			"id":    uid,
			"email": email,
		},
	})
}
