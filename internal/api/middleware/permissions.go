package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/resolver"
)

// PermissionChecker is the resolver as seen by route guards.
type PermissionChecker interface {
	CanPerform(ctx context.Context, principal *models.User, pageName string, action models.Action) (bool, error)
}

// RequireSuperAdmin only lets superadmins through.
func RequireSuperAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := Principal(c)
			if user == nil {
				return common.ErrUnauthorized
			}
			if !user.IsSuperAdmin() {
				return common.ErrForbidden.WithMessage("Super admin access required")
			}
			return next(c)
		}
	}
}

// RequirePageAction checks action on the page named by the route parameter param.
func RequirePageAction(checker PermissionChecker, action models.Action, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := checker.CanPerform(c.Request().Context(), Principal(c), c.Param(param), action)
			if err != nil {
				return err
			}
			if !allowed {
				return common.ErrForbidden.WithMessage(resolver.DenyMessage(action))
			}
			return next(c)
		}
	}
}
