package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bekzodm/taskhub/internal/services"
	appErrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

// TaskHandler serves the per-user task CRUD endpoints.
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type taskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=256"`
	Description string     `json:"description" validate:"omitempty,max=4096"`
	Priority    string     `json:"priority" validate:"required"`
	Status      string     `json:"status"`
	Image       *string    `json:"image" validate:"omitempty,max=512"`
	CategoryID  *uint      `json:"category_id"`
	Date        *time.Time `json:"date"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	AllDay      bool       `json:"all_day"`
}

type taskUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=256"`
	Description *string    `json:"description" validate:"omitempty,max=4096"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	Image       *string    `json:"image" validate:"omitempty,max=512"`
	CategoryID  *uint      `json:"category_id"`
	Date        *time.Time `json:"date"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	AllDay      *bool      `json:"all_day"`
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req taskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), userID, services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		AllDay:      req.AllDay,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, task)
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	opts := services.ListTasksOptions{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		CategoryID: parseUintQuery(c, "category_id"),
		From:       from,
		To:         to,
		Page:       parseIntQuery(c, "page", 0),
		Limit:      parseIntQuery(c, "limit", 0),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}

	tasks, meta, err := h.tasks.List(requestContext(c), userID, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	if meta != nil {
		response.SuccessWithMeta(c, http.StatusOK, tasks, &response.Meta{
			Page:  meta.Page,
			Limit: meta.Limit,
			Total: meta.Total,
			Pages: meta.Pages,
		})
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(requestContext(c), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req taskUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Update(requestContext(c), userID, id, services.TaskUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		AllDay:      req.AllDay,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Task deleted", gin.H{"deleted": true})
}

// parseDateQuery accepts RFC 3339 timestamps or plain dates.
func parseDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, true
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return &parsed, true
	}

	response.Error(c, appErrors.NewBadRequest(key+" must be an RFC 3339 timestamp or YYYY-MM-DD date"))
	return nil, false
}
