package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"pageguard/internal/api/validator"
	"pageguard/internal/models"
	"pageguard/internal/services"
)

type AdminHandler struct {
	admin AdminService
}

func NewAdminHandler(admin AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateUserResponse carries the generated password, shown once.
type CreateUserResponse struct {
	User     *models.User `json:"user"`
	Password string       `json:"password"`
}

// CreateUser creates a user with a given or generated password.
// @Summary Create user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validator.CreateUserRequest true "User"
// @Success 201 {object} CreateUserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/v1/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req validator.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, password, err := h.admin.CreateUser(c.Request().Context(), services.CreateUserInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      models.UserRole(req.Role),
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreateUserResponse{User: user, Password: password})
}

// UpdateUser applies a partial update to a user.
// @Summary Update user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body validator.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Policy violation"
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/v1/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req validator.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := services.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		in.Role = &role
	}

	user, err := h.admin.UpdateUser(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user and everything that references them.
// @Summary Delete user
// @Description Cascade delete. The user's comments and history are archived first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} services.DeletionReport
// @Failure 400 {object} map[string]string "Cannot delete super admin user"
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/v1/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	report, err := h.admin.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// ResetUserPassword replaces a user's password with a generated one.
// @Summary Reset user password
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string "New password"
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/v1/users/{id}/reset-password [post]
func (h *AdminHandler) ResetUserPassword(c echo.Context) error {
	password, err := h.admin.ResetPassword(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"password": password})
}

// PermissionResponse is a stored grant plus the level it encodes, when it encodes one.
type PermissionResponse struct {
	*models.PagePermission
	Level models.Level `json:"level,omitempty"`
}

// UpdatePermission sets the grant of a user on a page.
// @Summary Update permission
// @Description Set the four flags of (user, page), or a cascading level
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validator.PermissionRequest true "Grant"
// @Success 200 {object} PermissionResponse
// @Failure 400 {object} map[string]string "Super admin permissions cannot be modified"
// @Failure 404 {object} map[string]string "User or page not found"
// @Router /api/v1/permissions/update [post]
func (h *AdminHandler) UpdatePermission(c echo.Context) error {
	var req validator.PermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	flags := models.Flags{
		CanView:   req.CanView,
		CanEdit:   req.CanEdit,
		CanCreate: req.CanCreate,
		CanDelete: req.CanDelete,
	}
	if req.Level != "" {
		flags = models.FlagsFromLevel(models.Level(req.Level))
	}

	grant, err := h.admin.UpsertPermission(c.Request().Context(), req.UserID, req.PageID, flags)
	if err != nil {
		return err
	}

	resp := PermissionResponse{PagePermission: grant}
	if level, ok := models.LevelFromFlags(grant.Flags()); ok {
		resp.Level = level
	}
	return c.JSON(http.StatusOK, resp)
}

// UserPermissions returns the stored grants of a user keyed by page id.
// @Summary User permissions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]models.Flags
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/v1/users/{id}/permissions [get]
func (h *AdminHandler) UserPermissions(c echo.Context) error {
	perms, err := h.admin.UserPermissions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}
