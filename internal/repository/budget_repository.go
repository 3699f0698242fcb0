package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// BudgetRepository handles budget database operations.
type BudgetRepository struct {
	db database.PGXDB
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(db database.PGXDB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

const budgetSelect = `
	SELECT b.id, b.user_id, b.category_id, b.budget_limit, b.period, b.alert_threshold, b.active,
	       b.created_at, b.updated_at,
	       c.id, c.name, c.icon, c.color, c.active
	FROM budgets b
	LEFT JOIN categories c ON b.category_id = c.id`

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var b models.Budget
	var period string
	var threshold decimal.NullDecimal
	var catID *int
	var catName, catIcon, catColor *string
	var catActive *bool
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Limit, &period, &threshold, &b.Active,
		&b.CreatedAt, &b.UpdatedAt,
		&catID, &catName, &catIcon, &catColor, &catActive)
	if err != nil {
		return nil, err
	}
	b.Period = models.BudgetPeriod(period)
	if threshold.Valid {
		b.AlertThreshold = &threshold.Decimal
	}
	if catID != nil {
		b.Category = &models.Category{ID: *catID, Name: *catName, Icon: *catIcon, Color: *catColor, Active: *catActive}
	}
	return &b, nil
}

func thresholdArg(t *decimal.Decimal) any {
	if t == nil {
		return nil
	}
	return *t
}

// Upsert updates the active budget with the same (user, category, period) key,
// or inserts a new one. A nil CategoryID addresses the total budget.
func (r *BudgetRepository) Upsert(ctx context.Context, b *models.Budget) error {
	err := r.db.QueryRow(ctx, `
		UPDATE budgets SET budget_limit = $4, alert_threshold = $5, updated_at = NOW()
		WHERE user_id = $1 AND category_id IS NOT DISTINCT FROM $2 AND period = $3 AND active
		RETURNING id, active, created_at, updated_at
	`, b.UserID, b.CategoryID, string(b.Period), b.Limit, thresholdArg(b.AlertThreshold),
	).Scan(&b.ID, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update budget: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, budget_limit, period, alert_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, active, created_at, updated_at
	`, b.UserID, b.CategoryID, b.Limit, string(b.Period), thresholdArg(b.AlertThreshold),
	).Scan(&b.ID, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return wrap("insert budget", err)
	}
	return nil
}

// ListActive returns the user's active budgets, optionally filtered by period.
// Total budgets sort first, then categories by name.
func (r *BudgetRepository) ListActive(ctx context.Context, userID int64, period *models.BudgetPeriod) ([]models.Budget, error) {
	var p any
	if period != nil {
		p = string(*period)
	}
	rows, err := r.db.Query(ctx, budgetSelect+`
		WHERE b.user_id = $1 AND b.active AND ($2::text IS NULL OR b.period = $2)
		ORDER BY b.category_id IS NOT NULL, c.name, b.period
	`, userID, p)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}

// GetActiveForCategory retrieves the active budget for a category and period.
func (r *BudgetRepository) GetActiveForCategory(ctx context.Context, userID int64, categoryID int, period models.BudgetPeriod) (*models.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, budgetSelect+`
		WHERE b.user_id = $1 AND b.category_id = $2 AND b.period = $3 AND b.active
	`, userID, categoryID, string(period)))
	if err != nil {
		return nil, wrap("get category budget", err)
	}
	return b, nil
}

// GetActiveTotal retrieves the active total budget for a period.
func (r *BudgetRepository) GetActiveTotal(ctx context.Context, userID int64, period models.BudgetPeriod) (*models.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, budgetSelect+`
		WHERE b.user_id = $1 AND b.category_id IS NULL AND b.period = $2 AND b.active
	`, userID, string(period)))
	if err != nil {
		return nil, wrap("get total budget", err)
	}
	return b, nil
}

// GetByID retrieves a budget regardless of owner.
func (r *BudgetRepository) GetByID(ctx context.Context, id int) (*models.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, budgetSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, wrap("get budget", err)
	}
	return b, nil
}

// Delete removes a budget.
func (r *BudgetRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete budget: %w", ErrNotFound)
	}
	return nil
}
