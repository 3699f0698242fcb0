package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseSelect = `
	SELECT e.id, e.user_id, e.category_id, e.amount, e.currency, e.description, e.expense_date,
	       e.ai_parsed, e.ai_confidence, e.original_message, e.created_at, e.updated_at,
	       c.id, c.name, c.description, c.icon, c.color, c.active, c.created_at, c.updated_at
	FROM expenses e
	JOIN categories c ON e.category_id = c.id`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	var c models.Category
	var confidence decimal.NullDecimal
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Currency, &e.Description, &e.ExpenseDate,
		&e.AIParsed, &confidence, &e.OriginalMessage, &e.CreatedAt, &e.UpdatedAt,
		&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if confidence.Valid {
		e.AIConfidence = &confidence.Decimal
	}
	e.Category = &c
	return &e, nil
}

func scanExpenses(rows pgx.Rows) ([]models.Expense, error) {
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// Create adds a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	var confidence any
	if e.AIConfidence != nil {
		confidence = *e.AIConfidence
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_id, category_id, amount, currency, description, expense_date,
		                      ai_parsed, ai_confidence, original_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.UserID, e.CategoryID, e.Amount, e.Currency, e.Description, e.ExpenseDate,
		e.AIParsed, confidence, e.OriginalMessage,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return wrap("create expense", err)
	}
	return nil
}

// GetByID retrieves an expense with its category.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, expenseSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, wrap("get expense", err)
	}
	return e, nil
}

// ListByDateRange returns the user's expenses dated within [from, to], newest first.
func (r *ExpenseRepository) ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, expenseSelect+`
		WHERE e.user_id = $1 AND e.expense_date BETWEEN $2 AND $3
		ORDER BY e.expense_date DESC, e.id DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	return scanExpenses(rows)
}

// ListByCategory returns every expense of the user in one category, newest first.
func (r *ExpenseRepository) ListByCategory(ctx context.Context, userID int64, categoryID int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, expenseSelect+`
		WHERE e.user_id = $1 AND e.category_id = $2
		ORDER BY e.expense_date DESC, e.id DESC
	`, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by category: %w", err)
	}
	return scanExpenses(rows)
}

// ListRecent returns the user's n most recent expenses.
func (r *ExpenseRepository) ListRecent(ctx context.Context, userID int64, n int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, expenseSelect+`
		WHERE e.user_id = $1
		ORDER BY e.expense_date DESC, e.id DESC
		LIMIT $2
	`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent expenses: %w", err)
	}
	return scanExpenses(rows)
}

// SumByDateRange totals the user's spending within [from, to].
func (r *ExpenseRepository) SumByDateRange(ctx context.Context, userID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
	`, userID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

// SumByCategory totals the user's spending in one category. A nil range means all time.
func (r *ExpenseRepository) SumByCategory(ctx context.Context, userID int64, categoryID int, from, to *time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND category_id = $2
		  AND ($3::date IS NULL OR expense_date >= $3)
		  AND ($4::date IS NULL OR expense_date <= $4)
	`, userID, categoryID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses by category: %w", err)
	}
	return total, nil
}

// SumPerCategory totals spending within [from, to] keyed by category ID.
func (r *ExpenseRepository) SumPerCategory(ctx context.Context, userID int64, from, to time.Time) (map[int]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category_id, SUM(amount) FROM expenses
		WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
		GROUP BY category_id
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum per category: %w", err)
	}
	defer rows.Close()

	out := make(map[int]decimal.Decimal)
	for rows.Next() {
		var id int
		var total decimal.Decimal
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("failed to scan category sum: %w", err)
		}
		out[id] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category sums: %w", err)
	}
	return out, nil
}

// HighestDay returns the calendar day with the largest total spend across the
// user's history. The earliest such day wins ties. ErrNotFound means no expenses.
func (r *ExpenseRepository) HighestDay(ctx context.Context, userID int64) (time.Time, decimal.Decimal, error) {
	var day time.Time
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT expense_date, SUM(amount) AS total FROM expenses
		WHERE user_id = $1
		GROUP BY expense_date
		ORDER BY total DESC, expense_date ASC
		LIMIT 1
	`, userID).Scan(&day, &total)
	if err != nil {
		return time.Time{}, decimal.Zero, wrap("get highest day", err)
	}
	return day, total, nil
}
