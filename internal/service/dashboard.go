package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

const (
	dashboardSeriesDays = 30
	dashboardTopN       = 5
	maxRangeDays        = 366
)

// Dashboard is the overview of a period's spending.
type Dashboard struct {
	From             string                    `json:"from"`
	To               string                    `json:"to"`
	Total            decimal.Decimal           `json:"totalSpent"`
	PreviousTotal    decimal.Decimal           `json:"previousPeriodSpent"`
	PercentChange    decimal.Decimal           `json:"percentChange"`
	Breakdown        []analytics.CategorySpend `json:"categoryBreakdown"`
	Daily            []analytics.DailyPoint    `json:"dailySpending"`
	TopExpenses      []models.Expense          `json:"topExpenses"`
	BudgetStatus     []analytics.BudgetStatus  `json:"budgetStatus,omitempty"`
	TransactionCount int                       `json:"transactionCount"`
}

// DashboardService builds dashboards.
type DashboardService struct {
	expenses ExpenseStore
	budgets  *BudgetService
	clock    Clock
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(expenses ExpenseStore, budgets *BudgetService, clock Clock) *DashboardService {
	return &DashboardService{expenses: expenses, budgets: budgets, clock: clock}
}

// Dashboard summarizes the current month, compared with last month. The daily
// series covers the trailing 30 days.
func (s *DashboardService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	today := s.clock.Today()
	from, to := analytics.MonthRange(today)
	prevFrom, prevTo := analytics.MonthRange(from.AddDate(0, 0, -1))

	month, err := s.expenses.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	prevTotal, err := s.expenses.SumByDateRange(ctx, userID, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}
	seriesFrom := today.AddDate(0, 0, -(dashboardSeriesDays - 1))
	trailing, err := s.expenses.ListByDateRange(ctx, userID, seriesFrom, today)
	if err != nil {
		return nil, err
	}
	status, err := s.budgets.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := build(month, prevTotal, from, to)
	d.Daily = analytics.LastNDays(trailing, today, dashboardSeriesDays)
	d.BudgetStatus = status
	return d, nil
}

// DashboardRange summarizes [from, to], compared with the preceding period of
// equal length. The daily series covers the whole range. Budget status is
// left out since it only describes the current month.
func (s *DashboardService) DashboardRange(ctx context.Context, userID int64, from, to time.Time) (*Dashboard, error) {
	from, to = analytics.Day(from), analytics.Day(to)
	if from.After(to) {
		return nil, apperr.BadRequest("Start date must be on or before end date")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > maxRangeDays {
		return nil, apperr.BadRequest("Date range must not exceed %d days", maxRangeDays)
	}

	expenses, err := s.expenses.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	prevTo := from.AddDate(0, 0, -1)
	prevTotal, err := s.expenses.SumByDateRange(ctx, userID, prevTo.AddDate(0, 0, -(days-1)), prevTo)
	if err != nil {
		return nil, err
	}

	d := build(expenses, prevTotal, from, to)
	d.Daily = analytics.DailySeries(expenses, from, to)
	return d, nil
}

func build(expenses []models.Expense, prevTotal decimal.Decimal, from, to time.Time) *Dashboard {
	total := analytics.Total(expenses)
	top := analytics.TopN(expenses, dashboardTopN)
	if top == nil {
		top = []models.Expense{}
	}
	breakdown := analytics.ByCategory(expenses)
	if breakdown == nil {
		breakdown = []analytics.CategorySpend{}
	}
	return &Dashboard{
		From:             from.Format(time.DateOnly),
		To:               to.Format(time.DateOnly),
		Total:            total,
		PreviousTotal:    prevTotal,
		PercentChange:    analytics.PercentChange(prevTotal, total),
		Breakdown:        breakdown,
		TopExpenses:      top,
		TransactionCount: len(expenses),
	}
}
