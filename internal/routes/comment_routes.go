package routes

import (
	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
	"pageguard/internal/handlers"
	"pageguard/internal/models"
)

// SetupCommentRoutes registers page and comment routes on an authenticated group.
// Page scoped routes are guarded by the resolver before the handler runs.
func SetupCommentRoutes(g *echo.Group, h *handlers.CommentHandler, p *handlers.PageHandler, checker middleware.PermissionChecker) {
	pages := g.Group("/pages")
	pages.GET("", p.ListPages)
	pages.GET("/:page", p.PageDetail, middleware.RequirePageAction(checker, models.ActionView, "page"))
	pages.GET("/:page/permissions", p.PagePermissions)
	pages.GET("/:page/comments", h.ListComments, middleware.RequirePageAction(checker, models.ActionView, "page"))
	pages.POST("/:page/comments", h.PostComment, middleware.RequirePageAction(checker, models.ActionCreate, "page"))

	// Comment routes resolve the page from the comment itself
	comments := g.Group("/comments")
	comments.PUT("/:id", h.EditComment)
	comments.DELETE("/:id", h.DeleteComment)
	comments.GET("/:id/history", h.CommentHistory)

	g.GET("/user-accessible-pages", p.AccessiblePages)
}
