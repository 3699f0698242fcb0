package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// CategoryRepository handles category database operations.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, description, icon, color, active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActive returns active categories ordered by name.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by ID, active or not.
func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get category", err)
	}
	return c, nil
}

// GetByName retrieves a category by name, ignoring case. Inactive categories are included.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		return nil, wrap("get category by name", err)
	}
	return c, nil
}

// Create adds a new category.
func (r *CategoryRepository) Create(ctx context.Context, cat *models.Category) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (name, description, icon, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, active, created_at, updated_at
	`, cat.Name, cat.Description, cat.Icon, cat.Color).Scan(&cat.ID, &cat.Active, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return wrap("create category", err)
	}
	return nil
}

// Update overwrites name, description, icon and color.
func (r *CategoryRepository) Update(ctx context.Context, cat *models.Category) error {
	err := r.db.QueryRow(ctx, `
		UPDATE categories SET name = $2, description = $3, icon = $4, color = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING active, created_at, updated_at
	`, cat.ID, cat.Name, cat.Description, cat.Icon, cat.Color).Scan(&cat.Active, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return wrap("update category", err)
	}
	return nil
}

// SetActive toggles the soft-delete flag.
func (r *CategoryRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update category state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update category state: %w", ErrNotFound)
	}
	return nil
}
