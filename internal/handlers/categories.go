package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bekzodm/taskhub/internal/services"
	"github.com/bekzodm/taskhub/pkg/response"
)

// CategoryHandler serves the category CRUD endpoints.
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"omitempty,max=1024"`
	Priority    string `json:"priority" validate:"required"`
}

type categoryUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	Priority    *string `json:"priority"`
}

// POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.categories.Create(requestContext(c), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, category)
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	opts := services.ListCategoriesOptions{
		Search:    c.Query("search"),
		Priority:  c.Query("priority"),
		Page:      parseIntQuery(c, "page", 0),
		Limit:     parseIntQuery(c, "limit", 0),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	categories, meta, err := h.categories.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	if meta != nil {
		response.SuccessWithMeta(c, http.StatusOK, categories, &response.Meta{
			Page:  meta.Page,
			Limit: meta.Limit,
			Total: meta.Total,
			Pages: meta.Pages,
		})
		return
	}

	response.Success(c, http.StatusOK, categories)
}

// GET /api/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categories.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, category)
}

// PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req categoryUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.categories.Update(requestContext(c), id, services.CategoryUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, category)
}

// DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.categories.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Category deleted", gin.H{"deleted": true})
}

// parseUintQuery parses an optional numeric query parameter.
func parseUintQuery(c *gin.Context, key string) *uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	value := uint(parsed)
	return &value
}
