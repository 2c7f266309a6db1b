package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
)

type PageHandler struct {
	comments CommentService
	admin    AdminService
	pages    PageLister
}

func NewPageHandler(comments CommentService, admin AdminService, pages PageLister) *PageHandler {
	return &PageHandler{comments: comments, admin: admin, pages: pages}
}

// ListPages returns the page catalog.
// @Summary List pages
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Page
// @Router /api/v1/pages [get]
func (h *PageHandler) ListPages(c echo.Context) error {
	pages, err := h.admin.ListPages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}

// PageDetail returns a page with its comments and the caller's permissions.
// @Summary Page detail
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Param page path string true "Page name"
// @Success 200 {object} services.PageDetail
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Page not found"
// @Router /api/v1/pages/{page} [get]
func (h *PageHandler) PageDetail(c echo.Context) error {
	detail, err := h.comments.PageDetail(c.Request().Context(), middleware.Principal(c), c.Param("page"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// PagePermissions returns what the caller may do on a page.
// @Summary Page permissions
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Param page path string true "Page name"
// @Success 200 {object} models.Flags
// @Failure 404 {object} map[string]string "Page not found"
// @Router /api/v1/pages/{page}/permissions [get]
func (h *PageHandler) PagePermissions(c echo.Context) error {
	flags, err := h.comments.PagePermissions(c.Request().Context(), middleware.Principal(c), c.Param("page"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flags)
}

// AccessiblePages lists the pages the caller can view.
// @Summary Accessible pages
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resolver.PageAccess
// @Router /api/v1/user-accessible-pages [get]
func (h *PageHandler) AccessiblePages(c echo.Context) error {
	pages, err := h.pages.EffectivePages(c.Request().Context(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}
