package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"pageguard/internal/services"
)

// BaseController provides generic read operations for any model
type BaseController[T any] struct {
	service services.ReadService[T]
}

// NewBaseController creates a new base controller
func NewBaseController[T any](service services.ReadService[T]) *BaseController[T] {
	return &BaseController[T]{
		service: service,
	}
}

// reserved query parameters that are not filters
var reserved = map[string]bool{"page": true, "limit": true, "include": true, "sort": true, "order": true}

// parseIncludes parses the include query parameter and returns a slice of relationships to preload
func parseIncludes(ctx echo.Context) []string {
	include := ctx.QueryParam("include")
	if include == "" {
		return nil
	}
	return strings.Split(include, ",")
}

// Get handles retrieval of a single entity
func (c *BaseController[T]) Get(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing id parameter")
	}
	entity, err := c.service.Get(ctx.Request().Context(), id, parseIncludes(ctx)...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entity)
}

// List handles retrieval of multiple entities with pagination, filtering and sorting
func (c *BaseController[T]) List(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filters := make(map[string]interface{})
	for key, values := range ctx.QueryParams() {
		if !reserved[key] && len(values) > 0 {
			filters[key] = values[0]
		}
	}

	entities, total, err := c.service.List(ctx.Request().Context(), services.ListQuery{
		Page:     page,
		Limit:    limit,
		Filters:  filters,
		Sort:     ctx.QueryParam("sort"),
		Desc:     strings.EqualFold(ctx.QueryParam("order"), "desc"),
		Includes: parseIncludes(ctx),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"data":  entities,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// RegisterRoutes registers the read routes for the controller
func (c *BaseController[T]) RegisterRoutes(g *echo.Group, path string) {
	g.GET(path, c.List)
	g.GET(path+"/:id", c.Get)
}
