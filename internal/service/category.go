package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

const defaultCategoryColor = "#BDC3C7"

// CategoryRequest is the input for creating or updating a category.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=255"`
	Icon        string `json:"icon" binding:"max=10"`
	Color       string `json:"color" binding:"omitempty,hexcolor"`
}

// CategoryService manages the global category list.
type CategoryService struct {
	categories CategoryStore
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

// ListActive returns the active categories.
func (s *CategoryService) ListActive(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListActive(ctx)
}

// Names returns the active category names.
func (s *CategoryService) Names(ctx context.Context) ([]string, error) {
	cats, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id int) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Category not found: %d", id)
	}
	return c, nil
}

// Create adds a category. Names are unique ignoring case.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	cat, err := buildCategory(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByName(ctx, cat.Name); err == nil {
		return nil, apperr.Conflict("Category already exists: %s", cat.Name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		return nil, duplicateCategory(err, cat.Name)
	}
	return cat, nil
}

// Update overwrites a category's fields.
func (s *CategoryService) Update(ctx context.Context, id int, req CategoryRequest) (*models.Category, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cat, err := buildCategory(req)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(existing.Name, cat.Name) {
		if other, err := s.categories.GetByName(ctx, cat.Name); err == nil && other.ID != id {
			return nil, apperr.Conflict("Category already exists: %s", cat.Name)
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	cat.ID = id
	if err := s.categories.Update(ctx, cat); err != nil {
		return nil, duplicateCategory(notFound(err, "Category not found: %d", id), cat.Name)
	}
	return cat, nil
}

// Delete deactivates a category. Existing expenses keep referencing it.
func (s *CategoryService) Delete(ctx context.Context, id int) error {
	if err := s.categories.SetActive(ctx, id, false); err != nil {
		return notFound(err, "Category not found: %d", id)
	}
	return nil
}

func buildCategory(req CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, apperr.Field("name", "is required")
	case len([]rune(name)) > models.MaxCategoryNameLength:
		return nil, apperr.Field("name", fmt.Sprintf("must be at most %d characters", models.MaxCategoryNameLength))
	}
	cat := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		Color:       strings.TrimSpace(req.Color),
	}
	if cat.Icon == "" {
		cat.Icon = models.DefaultCategoryIcon
	}
	if cat.Color == "" {
		cat.Color = defaultCategoryColor
	}
	return cat, nil
}

func duplicateCategory(err error, name string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflict("Category already exists: %s", name)
	}
	return err
}
