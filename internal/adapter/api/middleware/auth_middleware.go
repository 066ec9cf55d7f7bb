package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"lugares/internal/domain/entity"
	"lugares/internal/usecase"
	"lugares/pkg/errors"
)

const (
	contextKeyUID      = "uid"
	contextKeyEmail    = "email"
	contextKeyIdentity = "identity"
)

type AuthMiddleware struct {
	verifier usecase.IdentityVerifier
	logger   *slog.Logger
}

func NewAuthMiddleware(verifier usecase.IdentityVerifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return errors.NotAuthenticated("authorization header is required")
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil || !identity.IsAuthenticated() {
			m.logger.DebugContext(c.Request().Context(), "token rejected", slog.Any("error", err))
			return errors.NotAuthenticated("invalid or expired token")
		}

		setIdentity(c, identity)
		return next(c)
	}
}

// Optional attaches the caller's identity when a valid token is present and
// lets anonymous requests through otherwise.
func (m *AuthMiddleware) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return next(c)
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err == nil && identity.IsAuthenticated() {
			setIdentity(c, identity)
		}
		return next(c)
	}
}

// IdentityFromContext returns the identity set by Authenticate or Optional,
// or the zero identity for anonymous requests.
func IdentityFromContext(c echo.Context) entity.AuthorIdentity {
	identity, _ := c.Get(contextKeyIdentity).(entity.AuthorIdentity)
	return identity
}

func setIdentity(c echo.Context, identity entity.AuthorIdentity) {
	c.Set(contextKeyUID, identity.ID)
	c.Set(contextKeyEmail, identity.Email)
	c.Set(contextKeyIdentity, identity)
}

func bearerToken(c echo.Context) (string, bool) {
	parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
