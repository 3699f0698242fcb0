package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

const (
	defaultTrendDays = 10
	maxTrendDays     = 365
	minTrendYear     = 2000
)

// AnalyticsService answers trend, summary and forecast queries.
type AnalyticsService struct {
	expenses ExpenseStore
	clock    Clock
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(expenses ExpenseStore, clock Clock) *AnalyticsService {
	return &AnalyticsService{expenses: expenses, clock: clock}
}

// DailyTrend returns the zero-filled series of the last days days. Zero means 10.
func (s *AnalyticsService) DailyTrend(ctx context.Context, userID int64, days int) ([]analytics.DailyPoint, error) {
	if days == 0 {
		days = defaultTrendDays
	}
	if days < 1 || days > maxTrendDays {
		return nil, apperr.Field("days", fmt.Sprintf("must be between 1 and %d", maxTrendDays))
	}
	today := s.clock.Today()
	expenses, err := s.expenses.ListByDateRange(ctx, userID, today.AddDate(0, 0, -(days-1)), today)
	if err != nil {
		return nil, err
	}
	return analytics.LastNDays(expenses, today, days), nil
}

// MonthlySpend returns the twelve monthly totals of year. Zero means the current year.
func (s *AnalyticsService) MonthlySpend(ctx context.Context, userID int64, year int) ([]analytics.MonthlyPoint, error) {
	today := s.clock.Today()
	if year == 0 {
		year = today.Year()
	}
	if year < minTrendYear || year > today.Year()+1 {
		return nil, apperr.Field("year", fmt.Sprintf("must be between %d and %d", minTrendYear, today.Year()+1))
	}
	from, to := analytics.YearRange(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	expenses, err := s.expenses.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return analytics.MonthlySeries(expenses, year), nil
}

// Summary condenses the trailing window, the month to date and the user's
// highest-spending day.
func (s *AnalyticsService) Summary(ctx context.Context, userID int64) (*analytics.Summary, error) {
	today := s.clock.Today()
	window, err := s.expenses.ListByDateRange(ctx, userID, today.AddDate(0, 0, -(analytics.SummaryWindowDays-1)), today)
	if err != nil {
		return nil, err
	}
	monthFrom, _ := analytics.MonthRange(today)
	mtd, err := s.expenses.SumByDateRange(ctx, userID, monthFrom, today)
	if err != nil {
		return nil, err
	}

	var highest analytics.DailyPoint
	day, total, err := s.expenses.HighestDay(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		highest = analytics.HighestDay(nil, today)
	case err != nil:
		return nil, err
	default:
		highest = analytics.PointOn(day, total, 0)
	}

	sum := analytics.Summarize(analytics.LastNDays(window, today, analytics.SummaryWindowDays), mtd, today, highest)
	return &sum, nil
}

// Forecast projects month-end and year-end spend and predicts the next expense.
// Spend so far stops at today, so future-dated expenses do not inflate it.
func (s *AnalyticsService) Forecast(ctx context.Context, userID int64) (*analytics.Forecast, error) {
	today := s.clock.Today()
	monthFrom, _ := analytics.MonthRange(today)
	month, err := s.expenses.SumByDateRange(ctx, userID, monthFrom, today)
	if err != nil {
		return nil, err
	}
	yearFrom, _ := analytics.YearRange(today)
	year, err := s.expenses.SumByDateRange(ctx, userID, yearFrom, today)
	if err != nil {
		return nil, err
	}
	recent, err := s.expenses.ListRecent(ctx, userID, analytics.PredictionWindow)
	if err != nil {
		return nil, err
	}
	f := analytics.BuildForecast(month, year, today, recent)
	return &f, nil
}
