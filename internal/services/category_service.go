package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/models"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
)

// ErrCategoryNotFound indicates the requested category does not exist.
var ErrCategoryNotFound = apperrors.New("CATEGORY_NOT_FOUND", "Category not found", http.StatusNotFound)

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string
	Description string
	Priority    string
}

// CategoryUpdateInput enumerates mutable category attributes.
type CategoryUpdateInput struct {
	Name        *string
	Description *string
	Priority    *string
}

// ListCategoriesOptions controls filtering, sorting and pagination.
type ListCategoriesOptions struct {
	Search    string
	Priority  string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ListMeta describes the pagination window of a listing.
type ListMeta struct {
	Total int64
	Page  int
	Limit int
	Pages int
}

// CategoryService manages the category CRUD lifecycle.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// Create stores a new category.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	priority, err := normalizePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	category := models.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, storeFailure("category service: create", err)
	}

	return &category, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, storeFailure("category service: find", err)
	}
	return &category, nil
}

// List returns categories matching the options. Meta is nil when the caller
// did not request pagination.
func (s *CategoryService) List(ctx context.Context, opts ListCategoriesOptions) ([]models.Category, *ListMeta, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Category{})

	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if opts.Priority != "" {
		priority, err := normalizePriority(opts.Priority)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where("priority = ?", priority)
	}

	query = query.Order(orderClause(opts.SortBy, opts.SortOrder, categorySortColumns))

	if opts.Page > 0 && opts.Limit > 0 {
		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, nil, storeFailure("category service: count", err)
		}

		var categories []models.Category
		if err := query.
			Offset((opts.Page - 1) * opts.Limit).
			Limit(opts.Limit).
			Find(&categories).Error; err != nil {
			return nil, nil, storeFailure("category service: list", err)
		}

		return categories, pageMeta(total, opts.Page, opts.Limit), nil
	}

	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, nil, storeFailure("category service: list", err)
	}
	return categories, nil, nil
}

// Update mutates the provided fields on an existing category.
func (s *CategoryService) Update(ctx context.Context, id uint, input CategoryUpdateInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
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

	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
		return nil, storeFailure("category service: update", err)
	}

	return s.Get(ctx, id)
}

// Delete removes a category. Tasks keep their rows; the foreign key is nulled
// out by the schema.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Category{}, id).Error; err != nil {
		return storeFailure("category service: delete", err)
	}
	return nil
}

var categorySortColumns = map[string]string{
	"name":       "name",
	"priority":   "priority",
	"created_at": "created_at",
	"createdAt":  "created_at",
}

func normalizePriority(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return models.PriorityHigh, nil
	case "medium":
		return models.PriorityMedium, nil
	case "low":
		return models.PriorityLow, nil
	default:
		return "", apperrors.NewBadRequest("priority must be High, Medium or Low")
	}
}

// orderClause builds a safe ORDER BY from a whitelisted column set.
func orderClause(sortBy, sortOrder string, allowed map[string]string) string {
	column, ok := allowed[strings.TrimSpace(sortBy)]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		direction = "ASC"
	}

	return column + " " + direction
}

func pageMeta(total int64, page, limit int) *ListMeta {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages == 0 {
		pages = 1
	}
	return &ListMeta{Total: total, Page: page, Limit: limit, Pages: pages}
}
