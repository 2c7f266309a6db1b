package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
	"pageguard/internal/api/validator"
)

type CommentHandler struct {
	comments CommentService
}

func NewCommentHandler(comments CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// ListComments returns the live comments of a page.
// @Summary List comments
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param page path string true "Page name"
// @Success 200 {array} models.Comment
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Page not found"
// @Router /api/v1/pages/{page}/comments [get]
func (h *CommentHandler) ListComments(c echo.Context) error {
	comments, err := h.comments.List(c.Request().Context(), middleware.Principal(c), c.Param("page"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// PostComment adds a comment to a page.
// @Summary Post comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page path string true "Page name"
// @Param request body validator.CommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /api/v1/pages/{page}/comments [post]
func (h *CommentHandler) PostComment(c echo.Context) error {
	var req validator.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Post(c.Request().Context(), middleware.Principal(c), c.Param("page"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// EditComment replaces the content of a comment.
// @Summary Edit comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Param request body validator.CommentRequest true "New content"
// @Success 200 {object} models.Comment
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Router /api/v1/comments/{id} [put]
func (h *CommentHandler) EditComment(c echo.Context) error {
	var req validator.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Edit(c.Request().Context(), middleware.Principal(c), c.Param("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment soft-deletes a comment.
// @Summary Delete comment
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Router /api/v1/comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.comments.Delete(c.Request().Context(), middleware.Principal(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CommentHistory returns the audit trail of a comment.
// @Summary Comment history
// @Description Every create, edit and delete of a comment, newest first
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {array} models.CommentHistory
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Router /api/v1/comments/{id}/history [get]
func (h *CommentHandler) CommentHistory(c echo.Context) error {
	history, err := h.comments.History(c.Request().Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}
