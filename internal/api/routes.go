package api

import (
	_ "pageguard/docs/swagger"

	echoSwagger "github.com/swaggo/echo-swagger"

	"pageguard/internal/api/middleware"
	"pageguard/internal/api/registry"
	"pageguard/internal/handlers"
	"pageguard/internal/metrics"
	"pageguard/internal/routes"
)

func (s *Server) registerRoutes() error {
	// Health check
	// @Summary Health check
	// @Description Check if the server and its database are up
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Failure 503 {object} map[string]string "Database unreachable"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", metrics.Handler())
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	api := s.echo.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(s.deps.Auth)

	routes.SetupAuthRoutes(api, handlers.NewAuthHandler(s.deps.Auth), auth)

	protected := api.Group("", auth.Middleware())
	routes.SetupCommentRoutes(protected,
		handlers.NewCommentHandler(s.deps.Comments),
		handlers.NewPageHandler(s.deps.Comments, s.deps.Admin, s.deps.Resolver),
		s.deps.Resolver,
	)
	routes.SetupAdminRoutes(protected, handlers.NewAdminHandler(s.deps.Admin))

	// Read-only listings for users and archives
	return registry.RegisterReadRoutes(protected, s.deps.DB)
}
