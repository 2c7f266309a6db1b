package routes

import (
	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
	"pageguard/internal/handlers"
)

// SetupAdminRoutes registers the superadmin write routes on an authenticated group.
func SetupAdminRoutes(g *echo.Group, h *handlers.AdminHandler) {
	superAdmin := middleware.RequireSuperAdmin()

	g.POST("/users", h.CreateUser, superAdmin)
	g.PUT("/users/:id", h.UpdateUser, superAdmin)
	g.DELETE("/users/:id", h.DeleteUser, superAdmin)
	g.POST("/users/:id/reset-password", h.ResetUserPassword, superAdmin)
	g.GET("/users/:id/permissions", h.UserPermissions, superAdmin)
	g.POST("/permissions/update", h.UpdatePermission, superAdmin)
}
