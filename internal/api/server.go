package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"pageguard/internal/api/validator"
	"pageguard/internal/common"
	"pageguard/internal/config"
	"pageguard/internal/models"
	"pageguard/internal/resolver"
	"pageguard/internal/services"

	console "pageguard/internal/utils/logger"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	DB       *gorm.DB
	Auth     *services.AuthService
	Comments *services.CommentService
	Admin    *services.AdminService
	Resolver *resolver.Resolver
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Dependencies
}

var log = console.New("API-Server")

// NewServer @title pageguard API
// @version 1.0
// @description Page level access control with audited comments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Configure middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: cfg.Server.Timeout,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
	}

	// Provision the page catalog
	if created, err := deps.Admin.EnsurePages(context.Background()); err != nil {
		log.Warn("Warning: Failed to provision pages: %v", err)
	} else if created > 0 {
		log.Success("Provisioned %d pages", created)
	}

	if err := models.CreateSuperAdminFromEnv(deps.DB, cfg); err != nil {
		log.Warn("Warning: Failed to create super admin: %v", err)
	}

	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := s.deps.DB.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		errCode = common.CodeInternal
		message interface{}
		details map[string]string
	)

	var appErr *common.Error
	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &appErr):
		code = appErr.StatusCode
		errCode = appErr.Code
		message = appErr.Message
		details = appErr.Details
		if code >= http.StatusInternalServerError {
			log.Error("Request %s %s failed", err, c.Request().Method, c.Path())
		}
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		errCode = common.CodeValidation
		message = common.ErrValidation.Message
		details = ve.Fields()
	case errors.As(err, &he):
		code = he.Code
		errCode = codeForStatus(code)
		message = he.Message
	default:
		log.Error("Unhandled error on %s %s", err, c.Request().Method, c.Path())
		message = http.StatusText(code)
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			body := map[string]interface{}{
				"error":  message,
				"code":   errCode,
				"status": code,
				"time":   time.Now().Format(time.RFC3339),
			}
			if len(details) > 0 {
				body["details"] = details
			}
			err = c.JSON(code, body)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return common.CodeValidation
	case http.StatusUnauthorized:
		return common.CodeUnauthorized
	case http.StatusForbidden:
		return common.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return common.CodeNotFound
	case http.StatusTooManyRequests:
		return common.CodeRateLimited
	}
	return common.CodeInternal
}
