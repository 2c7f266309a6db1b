package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/utils/logger"
)

var log = logger.New("AUTH-MIDDLEWARE")

const principalKey = "principal"

// Authenticator resolves the user behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Middleware requires a bearer access token backed by a live session.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return common.ErrUnauthorized.WithMessage("Missing authorization header")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return common.ErrUnauthorized.WithMessage("Invalid authorization header format")
			}

			user, err := m.auth.Authenticate(c.Request().Context(), tokenParts[1])
			if err != nil {
				log.Debug("Rejected token on %s: %v", c.Path(), err)
				return err
			}

			c.Set(principalKey, user)
			c.Set("userID", user.ID)
			c.Set("role", string(user.Role))
			return next(c)
		}
	}
}

// Principal returns the authenticated user, or nil outside the auth middleware.
func Principal(c echo.Context) *models.User {
	if user, ok := c.Get(principalKey).(*models.User); ok {
		return user
	}
	return nil
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get("userID").(string); ok {
		return id
	}
	return ""
}
