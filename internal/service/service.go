// Package service implements the application use cases on top of the
// repositories. Every service depends on small store interfaces declared
// here so tests can substitute in-memory fakes.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64) error
	UpdateDefaultCurrency(ctx context.Context, id int64, currency string) error
	LinkTelegram(ctx context.Context, id, telegramID int64) error
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id int) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	Create(ctx context.Context, cat *models.Category) error
	Update(ctx context.Context, cat *models.Category) error
	SetActive(ctx context.Context, id int, active bool) error
}

// CurrencyStore persists the currency catalogue.
type CurrencyStore interface {
	List(ctx context.Context) ([]models.Currency, error)
	GetByID(ctx context.Context, id int) (*models.Currency, error)
	GetByCode(ctx context.Context, code string) (*models.Currency, error)
	Create(ctx context.Context, c *models.Currency) error
	Update(ctx context.Context, c *models.Currency) error
	Delete(ctx context.Context, id int) error
}

// ExpenseStore persists expenses and answers aggregate queries over them.
type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	ListByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Expense, error)
	ListByCategory(ctx context.Context, userID int64, categoryID int) ([]models.Expense, error)
	ListRecent(ctx context.Context, userID int64, n int) ([]models.Expense, error)
	SumByDateRange(ctx context.Context, userID int64, from, to time.Time) (decimal.Decimal, error)
	SumByCategory(ctx context.Context, userID int64, categoryID int, from, to *time.Time) (decimal.Decimal, error)
	SumPerCategory(ctx context.Context, userID int64, from, to time.Time) (map[int]decimal.Decimal, error)
	HighestDay(ctx context.Context, userID int64) (time.Time, decimal.Decimal, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	Upsert(ctx context.Context, b *models.Budget) error
	ListActive(ctx context.Context, userID int64, period *models.BudgetPeriod) ([]models.Budget, error)
	GetActiveForCategory(ctx context.Context, userID int64, categoryID int, period models.BudgetPeriod) (*models.Budget, error)
	GetActiveTotal(ctx context.Context, userID int64, period models.BudgetPeriod) (*models.Budget, error)
	GetByID(ctx context.Context, id int) (*models.Budget, error)
	Delete(ctx context.Context, id int) error
}

// SessionStore persists chat sessions.
type SessionStore interface {
	GetActiveByUser(ctx context.Context, userID int64) (*models.ChatSession, error)
	Upsert(ctx context.Context, s *models.ChatSession) error
	Deactivate(ctx context.Context, userID int64) (bool, error)
	Touch(ctx context.Context, userID int64) error
	DeactivateIdle(ctx context.Context, before time.Time) ([]int64, error)
}

// ChatHistoryStore persists chat exchanges.
type ChatHistoryStore interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	ListRecent(ctx context.Context, userID int64, n int) ([]models.ChatMessage, error)
}

// ParsingLogStore records expense parsing attempts.
type ParsingLogStore interface {
	Create(ctx context.Context, l *models.ParsingLog) error
}

// RefreshTokenStore persists refresh token hashes.
type RefreshTokenStore interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	GetValid(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, hash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Clock supplies "now" and the calendar used to decide what "today" is.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Today returns the current calendar day as UTC midnight.
func (c Clock) Today() time.Time {
	return analytics.Today(c.now(), c.Location)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   models.Role
}

// CanAccess reports whether the actor may act on userID's data.
func (a Actor) CanAccess(userID int64) bool {
	return a.UserID == userID || a.Role == models.RoleAdmin
}

// Authorize returns Forbidden unless the actor may act on userID's data.
func (a Actor) Authorize(userID int64) error {
	if !a.CanAccess(userID) {
		return apperr.Forbidden("You do not have access to this resource")
	}
	return nil
}

// notFound converts repository.ErrNotFound into an apperr NotFound with msg.
// Other errors pass through unchanged.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}
