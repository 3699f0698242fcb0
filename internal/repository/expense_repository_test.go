package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpenseRepository(t *testing.T) {
	t.Parallel()
	db := database.TestTx(t)
	repo := NewExpenseRepository(db)
	ctx := context.Background()

	u := newTestUser(t, db)
	food := mustCategory(t, db, "Food")
	transport := mustCategory(t, db, "Transport")

	conf := decimal.RequireFromString("0.85")
	fixtures := []models.Expense{
		{CategoryID: food.ID, Amount: decimal.RequireFromString("12.50"), ExpenseDate: day(2026, 3, 1), AIParsed: true, AIConfidence: &conf},
		{CategoryID: food.ID, Amount: decimal.RequireFromString("7.50"), ExpenseDate: day(2026, 3, 15)},
		{CategoryID: transport.ID, Amount: decimal.RequireFromString("30.00"), ExpenseDate: day(2026, 3, 31)},
		{CategoryID: transport.ID, Amount: decimal.RequireFromString("99.00"), ExpenseDate: day(2026, 4, 1)},
	}
	for i := range fixtures {
		fixtures[i].UserID = u.ID
		fixtures[i].Currency = "USD"
		require.NoError(t, repo.Create(ctx, &fixtures[i]))
		require.NotZero(t, fixtures[i].ID)
	}

	t.Run("get joins category and confidence", func(t *testing.T) {
		e, err := repo.GetByID(ctx, fixtures[0].ID)
		require.NoError(t, err)
		require.Equal(t, "Food", e.Category.Name)
		require.True(t, e.AIParsed)
		require.True(t, conf.Equal(*e.AIConfidence))
		require.Equal(t, day(2026, 3, 1), e.ExpenseDate.UTC())

		e, err = repo.GetByID(ctx, fixtures[1].ID)
		require.NoError(t, err)
		require.Nil(t, e.AIConfidence)
	})

	t.Run("date range is inclusive on both ends", func(t *testing.T) {
		list, err := repo.ListByDateRange(ctx, u.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, fixtures[2].ID, list[0].ID)

		total, err := repo.SumByDateRange(ctx, u.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("50").Equal(total))
	})

	t.Run("empty range sums to zero", func(t *testing.T) {
		total, err := repo.SumByDateRange(ctx, u.ID, day(2020, 1, 1), day(2020, 1, 2))
		require.NoError(t, err)
		require.True(t, total.IsZero())
	})

	t.Run("category filters", func(t *testing.T) {
		list, err := repo.ListByCategory(ctx, u.ID, transport.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)

		all, err := repo.SumByCategory(ctx, u.ID, transport.ID, nil, nil)
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("129").Equal(all))

		from, to := day(2026, 4, 1), day(2026, 4, 30)
		april, err := repo.SumByCategory(ctx, u.ID, transport.ID, &from, &to)
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("99").Equal(april))

		per, err := repo.SumPerCategory(ctx, u.ID, day(2026, 3, 1), day(2026, 3, 31))
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("20").Equal(per[food.ID]))
		require.True(t, decimal.RequireFromString("30").Equal(per[transport.ID]))
	})

	t.Run("recent", func(t *testing.T) {
		recent, err := repo.ListRecent(ctx, u.ID, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, fixtures[3].ID, recent[0].ID)
	})

	t.Run("highest day", func(t *testing.T) {
		d, total, err := repo.HighestDay(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, day(2026, 4, 1), d.UTC())
		require.True(t, decimal.RequireFromString("99").Equal(total))

		other := newTestUser(t, db)
		_, _, err = repo.HighestDay(ctx, other.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		bad := &models.Expense{UserID: u.ID, CategoryID: food.ID, Amount: decimal.Zero, Currency: "USD", ExpenseDate: day(2026, 3, 1)}
		require.Error(t, repo.Create(ctx, bad))
	})
}
