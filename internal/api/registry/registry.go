package registry

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"pageguard/internal/api/controllers"
	"pageguard/internal/api/middleware"
	"pageguard/internal/models"
	"pageguard/internal/services"
)

// RegisterReadRoutes registers the superadmin listing routes for users and
// deletion archives. Writes go through the admin handlers.
func RegisterReadRoutes(g *echo.Group, db *gorm.DB) error {
	userService, err := services.NewReadService(db, models.User{})
	if err != nil {
		return err
	}
	userController := controllers.NewBaseController(userService)
	userGroup := g.Group("/users")
	userGroup.Use(middleware.RequireSuperAdmin())

	// @Summary List users
	// @Description Get a paginated list of users. Any user column can be used as a filter.
	// @Tags admin
	// @Produce json
	// @Param page query int false "Page number"
	// @Param limit query int false "Page size"
	// @Param sort query string false "Sort column"
	// @Param order query string false "asc or desc"
	// @Success 200 {object} map[string]interface{}
	// @Failure 401 {object} map[string]string "Unauthorized"
	// @Failure 403 {object} map[string]string "Forbidden"
	// @Router /api/v1/users [get]
	userGroup.GET("", userController.List)
	// @Summary Get user
	// @Description Get a user by ID
	// @Tags admin
	// @Produce json
	// @Param id path string true "User ID"
	// @Success 200 {object} models.User
	// @Failure 404 {object} map[string]string "Not found"
	// @Router /api/v1/users/{id} [get]
	userGroup.GET("/:id", userController.Get)

	archiveService, err := services.NewReadService(db, models.UserArchive{})
	if err != nil {
		return err
	}
	archiveController := controllers.NewBaseController(archiveService)
	archiveGroup := g.Group("/archives")
	archiveGroup.Use(middleware.RequireSuperAdmin())

	// @Summary List user archives
	// @Description Get the signed tombstones written by user deletions
	// @Tags admin
	// @Produce json
	// @Success 200 {object} map[string]interface{}
	// @Failure 403 {object} map[string]string "Forbidden"
	// @Router /api/v1/archives [get]
	// @Summary Get user archive
	// @Description Get one archive with its snapshot
	// @Tags admin
	// @Produce json
	// @Param id path string true "Archive ID"
	// @Success 200 {object} models.UserArchive
	// @Failure 404 {object} map[string]string "Not found"
	// @Router /api/v1/archives/{id} [get]
	archiveController.RegisterRoutes(archiveGroup, "")
	return nil
}
