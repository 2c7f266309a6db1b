package routes

import (
	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
	"pageguard/internal/handlers"
)

func SetupAuthRoutes(base *echo.Group, h *handlers.AuthHandler, authMiddleware *middleware.AuthMiddleware) {
	auth := base.Group("/auth")

	// Public routes (no auth required)
	auth.POST("/login", h.Login)
	auth.POST("/login/superadmin", h.LoginSuperAdmin)
	auth.POST("/login/user", h.LoginUser)
	auth.POST("/refresh", h.RefreshToken)

	auth.POST("/password/reset/request", h.RequestPasswordReset)
	auth.POST("/password/reset/verify", h.VerifyOTP)
	auth.POST("/password/reset/confirm", h.ConfirmPasswordReset)

	// Protected auth routes (require authentication)
	requireAuth := authMiddleware.Middleware()
	auth.POST("/logout", h.Logout, requireAuth)
	auth.GET("/profile", h.GetProfile, requireAuth)
	auth.PUT("/profile", h.UpdateProfile, requireAuth)
}
