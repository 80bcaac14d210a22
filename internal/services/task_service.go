package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/models"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
)

// ErrTaskNotFound indicates the task does not exist or belongs to another user.
var ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)

// TaskInput carries the writable task fields.
type TaskInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	Image       *string
	CategoryID  *uint
	Date        *time.Time
	StartDate   *time.Time
	EndDate     *time.Time
	AllDay      bool
}

// TaskUpdateInput enumerates mutable task attributes.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	Image       *string
	CategoryID  *uint
	Date        *time.Time
	StartDate   *time.Time
	EndDate     *time.Time
	AllDay      *bool
}

// ListTasksOptions controls filtering, sorting and pagination for a user's tasks.
type ListTasksOptions struct {
	Search     string
	Status     string
	Priority   string
	CategoryID *uint
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// TaskService manages the task CRUD lifecycle. Every operation is scoped to
// the owning user; a task id belonging to someone else reads as not found.
type TaskService struct {
	db *gorm.DB
}

// NewTaskService constructs a TaskService.
func NewTaskService(db *gorm.DB) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	return &TaskService{db: db}, nil
}

// Create stores a new task owned by userID.
func (s *TaskService) Create(ctx context.Context, userID uint, input TaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	priority, err := normalizePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if status, err = normalizeTaskStatus(status); err != nil {
		return nil, err
	}

	task := models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      status,
		Image:       input.Image,
		CategoryID:  input.CategoryID,
		UserID:      userID,
		Date:        input.Date,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		AllDay:      input.AllDay,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, storeFailure("task service: create", err)
	}

	return &task, nil
}

// Get fetches a task owned by userID, preloading its category.
func (s *TaskService) Get(ctx context.Context, userID, id uint) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var task models.Task
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, storeFailure("task service: find", err)
	}
	return &task, nil
}

// List returns the user's tasks matching the options. Meta is nil when the
// caller did not request pagination.
func (s *TaskService) List(ctx context.Context, userID uint, opts ListTasksOptions) ([]models.Task, *ListMeta, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Task{}).Where("user_id = ?", userID)

	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if opts.Status != "" {
		status, err := normalizeTaskStatus(opts.Status)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where("status = ?", status)
	}
	if opts.Priority != "" {
		priority, err := normalizePriority(opts.Priority)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where("priority = ?", priority)
	}
	if opts.CategoryID != nil {
		query = query.Where("category_id = ?", *opts.CategoryID)
	}
	if opts.From != nil {
		query = query.Where("date >= ?", *opts.From)
	}
	if opts.To != nil {
		query = query.Where("date <= ?", *opts.To)
	}

	query = query.Order(orderClause(opts.SortBy, opts.SortOrder, taskSortColumns))

	if opts.Page > 0 && opts.Limit > 0 {
		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, nil, storeFailure("task service: count", err)
		}

		var tasks []models.Task
		if err := query.
			Preload("Category").
			Offset((opts.Page - 1) * opts.Limit).
			Limit(opts.Limit).
			Find(&tasks).Error; err != nil {
			return nil, nil, storeFailure("task service: list", err)
		}

		return tasks, pageMeta(total, opts.Page, opts.Limit), nil
	}

	var tasks []models.Task
	if err := query.Preload("Category").Find(&tasks).Error; err != nil {
		return nil, nil, storeFailure("task service: list", err)
	}
	return tasks, nil, nil
}

// Update mutates the provided fields on a task owned by userID.
func (s *TaskService) Update(ctx context.Context, userID, id uint, input TaskUpdateInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		priority, err := normalizePriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		updates["priority"] = priority
	}
	if input.Status != nil {
		status, err := normalizeTaskStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}
	if input.Image != nil {
		updates["image"] = *input.Image
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.Date != nil {
		updates["date"] = *input.Date
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if input.AllDay != nil {
		updates["all_day"] = *input.AllDay
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Task{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error; err != nil {
			return nil, storeFailure("task service: update", err)
		}
	}

	return s.Get(ctx, userID, id)
}

// Delete removes a task owned by userID.
func (s *TaskService) Delete(ctx context.Context, userID, id uint) error {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Task{}, id).Error; err != nil {
		return storeFailure("task service: delete", err)
	}
	return nil
}

var taskSortColumns = map[string]string{
	"title":      "title",
	"priority":   "priority",
	"status":     "status",
	"date":       "date",
	"created_at": "created_at",
	"createdAt":  "created_at",
}

func normalizeTaskStatus(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "todo":
		return models.TaskStatusTodo, nil
	case "inprogress":
		return models.TaskStatusInProgress, nil
	case "done":
		return models.TaskStatusDone, nil
	default:
		return "", apperrors.NewBadRequest("status must be Todo, InProgress or Done")
	}
}
