package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

var pngMagic = []byte("\x89PNG")

func TestCategoryPie(t *testing.T) {
	t.Parallel()

	t.Run("renders a png", func(t *testing.T) {
		t.Parallel()
		breakdown := analytics.ByCategory([]models.Expense{
			{ID: 1, Amount: decimal.NewFromInt(50), Category: &models.Category{Name: "Food"}},
			{ID: 2, Amount: decimal.NewFromInt(30), Category: &models.Category{Name: "Transport"}},
			{ID: 3, Amount: decimal.NewFromInt(20)},
		})

		png, err := CategoryPie(breakdown, "This month")
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("empty breakdown", func(t *testing.T) {
		t.Parallel()
		_, err := CategoryPie(nil, "Empty")
		require.ErrorIs(t, err, ErrNoData)
	})

	t.Run("all zero totals", func(t *testing.T) {
		t.Parallel()
		_, err := CategoryPie([]analytics.CategorySpend{{Name: "Food", Total: decimal.Zero}}, "Zero")
		require.ErrorIs(t, err, ErrNoData)
	})
}

func TestDailyLine(t *testing.T) {
	t.Parallel()

	t.Run("renders a png", func(t *testing.T) {
		t.Parallel()
		today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		points := analytics.LastNDays([]models.Expense{
			{Amount: decimal.NewFromInt(12), ExpenseDate: today},
			{Amount: decimal.NewFromInt(7), ExpenseDate: today.AddDate(0, 0, -3)},
		}, today, 10)

		png, err := DailyLine(points, "Last 10 days")
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("no points", func(t *testing.T) {
		t.Parallel()
		_, err := DailyLine(nil, "Empty")
		require.ErrorIs(t, err, ErrNoData)
	})
}
