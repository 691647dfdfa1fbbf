package middleware

import (
	"context"
	"strings"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/dto"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ContextUserKey is where RequireAuth stores the authenticated user.
const ContextUserKey = "user"

type authVerifier interface {
	VerifyAuth(ctx context.Context, tokenString string) (*dto.User, error)
}

type AuthMiddleware struct {
	authService authVerifier
}

func NewAuthMiddleware(authService authVerifier) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return apperr.Unauthorized("Unauthorized: No token provided")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logrus.Debug("Invalid authorization header format")
			return apperr.Unauthorized("Unauthorized: No token provided")
		}

		user, err := m.authService.VerifyAuth(c.Request().Context(), parts[1])
		if err != nil {
			return err
		}
		if user == nil {
			logrus.Debug("Invalid or expired access token")
			return apperr.InvalidToken("Unauthorized: Invalid token")
		}

		c.Set(ContextUserKey, user)
		return next(c)
	}
}

// UserFromContext returns the user stored by RequireAuth, or nil outside a
// protected route.
func UserFromContext(c echo.Context) *dto.User {
	user, _ := c.Get(ContextUserKey).(*dto.User)
	return user
}
