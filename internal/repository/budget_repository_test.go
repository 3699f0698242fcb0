package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

func TestBudgetRepository(t *testing.T) {
	t.Parallel()
	db := database.TestTx(t)
	repo := NewBudgetRepository(db)
	ctx := context.Background()

	u := newTestUser(t, db)
	food := mustCategory(t, db, "Food")

	threshold := decimal.NewFromInt(80)
	catBudget := &models.Budget{UserID: u.ID, CategoryID: &food.ID, Limit: decimal.NewFromInt(200), Period: models.PeriodMonthly, AlertThreshold: &threshold}
	require.NoError(t, repo.Upsert(ctx, catBudget))

	t.Run("upsert updates the same key in place", func(t *testing.T) {
		again := &models.Budget{UserID: u.ID, CategoryID: &food.ID, Limit: decimal.NewFromInt(250), Period: models.PeriodMonthly}
		require.NoError(t, repo.Upsert(ctx, again))
		require.Equal(t, catBudget.ID, again.ID)

		got, err := repo.GetActiveForCategory(ctx, u.ID, food.ID, models.PeriodMonthly)
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(250).Equal(got.Limit))
		require.Nil(t, got.AlertThreshold)
		require.Equal(t, "Food", got.Category.Name)
	})

	t.Run("different period is a separate budget", func(t *testing.T) {
		weekly := &models.Budget{UserID: u.ID, CategoryID: &food.ID, Limit: decimal.NewFromInt(50), Period: models.PeriodWeekly}
		require.NoError(t, repo.Upsert(ctx, weekly))
		require.NotEqual(t, catBudget.ID, weekly.ID)
	})

	t.Run("total budget upsert", func(t *testing.T) {
		total := &models.Budget{UserID: u.ID, Limit: decimal.NewFromInt(1000), Period: models.PeriodMonthly}
		require.NoError(t, repo.Upsert(ctx, total))
		second := &models.Budget{UserID: u.ID, Limit: decimal.NewFromInt(1200), Period: models.PeriodMonthly}
		require.NoError(t, repo.Upsert(ctx, second))
		require.Equal(t, total.ID, second.ID)

		got, err := repo.GetActiveTotal(ctx, u.ID, models.PeriodMonthly)
		require.NoError(t, err)
		require.True(t, got.IsTotal())
		require.Nil(t, got.Category)
	})

	t.Run("list filters by period with totals first", func(t *testing.T) {
		monthly := models.PeriodMonthly
		list, err := repo.ListActive(ctx, u.ID, &monthly)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.True(t, list[0].IsTotal())

		all, err := repo.ListActive(ctx, u.ID, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, catBudget.ID))
		_, err := repo.GetByID(ctx, catBudget.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, repo.Delete(ctx, catBudget.ID), ErrNotFound)
	})
}
