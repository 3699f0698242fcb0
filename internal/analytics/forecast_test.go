package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"pgregory.net/rapid"
)

func TestProject(t *testing.T) {
	t.Parallel()

	requireDecimal(t, "310", Project(d("100"), 10, 31))
	// 100/3 = 33.33 then * 30
	requireDecimal(t, "999.9", Project(d("100"), 3, 30))
	requireDecimal(t, "42", Project(d("42"), 0, 30))
}

func TestPredictNext(t *testing.T) {
	t.Parallel()

	on := date(2026, 3, 1)

	t.Run("nil without history", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, PredictNext(nil))
	})

	t.Run("most frequent category with average amount", func(t *testing.T) {
		t.Parallel()
		got := PredictNext([]models.Expense{
			exp(1, "Food", "10", on),
			exp(2, "Transport", "99", on),
			exp(3, "Food", "15", on),
			exp(4, "Food", "2.01", on),
		})
		require.Equal(t, "Food", got.Category)
		requireDecimal(t, "9", got.Amount)
		require.Equal(t, "Medium", got.Confidence)
		require.Equal(t, 4, got.SampleSize)
	})

	t.Run("tie goes to most recent", func(t *testing.T) {
		t.Parallel()
		got := PredictNext([]models.Expense{
			exp(1, "Transport", "1", on),
			exp(2, "Food", "1", on),
			exp(3, "Food", "1", on),
			exp(4, "Transport", "1", on),
		})
		require.Equal(t, "Transport", got.Category)
	})

	t.Run("confidence levels", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "Low", confidenceLabel(1))
		require.Equal(t, "Medium", confidenceLabel(4))
		require.Equal(t, "High", confidenceLabel(5))
	})

	t.Run("only the window is considered", func(t *testing.T) {
		t.Parallel()
		var rows []models.Expense
		for i := 0; i < PredictionWindow; i++ {
			rows = append(rows, exp(i, "Food", "1", on))
		}
		for i := 0; i < PredictionWindow+10; i++ {
			rows = append(rows, exp(100+i, "Bills", "1", on))
		}
		got := PredictNext(rows)
		require.Equal(t, "Food", got.Category)
		require.Equal(t, PredictionWindow, got.SampleSize)
	})
}

func TestBuildForecast(t *testing.T) {
	t.Parallel()

	today := date(2026, 3, 10)
	f := BuildForecast(d("100"), d("690"), today, []models.Expense{exp(1, "Food", "12.5", today)})

	requireDecimal(t, "310", f.MonthEnd)
	// 690 / 69 (day of year) = 10, * 365
	requireDecimal(t, "3650", f.YearEnd)
	require.Equal(t, "Food", f.NextLikely.Category)
	require.Equal(t,
		"Based on your spending habits, you are on track to spend $310.00 this month and $3650.00 this year. Your most frequent expense category is Food.",
		f.Summary)

	empty := BuildForecast(decimal.Zero, decimal.Zero, today, nil)
	require.Nil(t, empty.NextLikely)
	require.Contains(t, empty.Summary, "category is Unknown.")
	require.Contains(t, empty.Summary, "$0.00 this month")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	today := date(2026, 3, 10)
	rows := []models.Expense{exp(1, "Food", "20", date(2026, 3, 9)), exp(2, "Food", "10", date(2026, 3, 1))}
	window := LastNDays(rows, today, SummaryWindowDays)
	highest := HighestDay(window, today)

	s := Summarize(window, d("30"), today, highest)
	require.Equal(t, 10, s.WindowDays)
	requireDecimal(t, "30", s.WindowTotal)
	requireDecimal(t, "3", s.DailyAverage)
	requireDecimal(t, "93", s.ProjectedMonthly)
	require.Equal(t, "2026-03-09", s.HighestDailySpend.Day)

	s = Summarize(nil, decimal.Zero, today, HighestDay(nil, today))
	require.True(t, s.DailyAverage.IsZero())
}

func TestProjectProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		spent := decimal.New(rapid.Int64Range(0, 10_000_000).Draw(t, "cents"), -2)
		total := rapid.IntRange(28, 366).Draw(t, "total")
		elapsed := rapid.IntRange(1, total).Draw(t, "elapsed")

		got := Project(spent, elapsed, total)
		if got.IsNegative() {
			t.Fatalf("negative projection %s", got)
		}
		if elapsed == total && got.Sub(spent).Abs().GreaterThan(decimal.New(int64(total), -2)) {
			t.Fatalf("full-period projection %s drifted from spend %s", got, spent)
		}
	})
}
