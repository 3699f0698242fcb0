package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/telemetry"
)

const (
	totalBudgetName  = "Total"
	totalBudgetIcon  = "💰"
	totalBudgetColor = "#4ECDC4"
)

var maxThreshold = decimal.NewFromInt(100)

// BudgetInput sets a budget. Category is ignored for total budgets.
type BudgetInput struct {
	Category       string           `json:"category"`
	Limit          decimal.Decimal  `json:"limit" binding:"required"`
	Period         string           `json:"period"`
	AlertThreshold *decimal.Decimal `json:"alertThreshold"`
}

// BudgetView is a budget evaluated against the spend in its current period.
type BudgetView struct {
	ID             int                 `json:"id"`
	CategoryID     *int                `json:"categoryId,omitempty"`
	Category       string              `json:"category"`
	Icon           string              `json:"icon"`
	Color          string              `json:"color"`
	Limit          decimal.Decimal     `json:"limit"`
	Period         models.BudgetPeriod `json:"period"`
	AlertThreshold *decimal.Decimal    `json:"alertThreshold,omitempty"`
	Active         bool                `json:"active"`
	PeriodStart    string              `json:"periodStart"`
	PeriodEnd      string              `json:"periodEnd"`
	Spent          decimal.Decimal     `json:"spent"`
	Remaining      decimal.Decimal     `json:"remaining"`
	PercentUsed    decimal.Decimal     `json:"percentUsed"`
	IsOverBudget   bool                `json:"isOverBudget"`
	IsNearLimit    bool                `json:"isNearLimit"`
}

// BudgetService manages budgets and evaluates them.
type BudgetService struct {
	budgets    BudgetStore
	categories CategoryStore
	expenses   ExpenseStore
	defaults   map[string]decimal.Decimal
	metrics    *telemetry.Metrics
	clock      Clock
}

// NewBudgetService creates a BudgetService. defaults are the monthly limits for
// categories without a user budget; nil means analytics.DefaultLimits.
func NewBudgetService(budgets BudgetStore, categories CategoryStore, expenses ExpenseStore, defaults map[string]decimal.Decimal, metrics *telemetry.Metrics, clock Clock) *BudgetService {
	if defaults == nil {
		defaults = analytics.DefaultLimits()
	}
	return &BudgetService{
		budgets:    budgets,
		categories: categories,
		expenses:   expenses,
		defaults:   defaults,
		metrics:    metrics,
		clock:      clock,
	}
}

// validateBudget checks in after its limit has been rounded to cents.
func validateBudget(in BudgetInput, prefix string) (models.BudgetPeriod, error) {
	fields := map[string]string{}
	if !in.Limit.IsPositive() {
		fields[prefix+"limit"] = "must be greater than 0"
	}
	if t := in.AlertThreshold; t != nil && (t.IsNegative() || t.GreaterThan(maxThreshold)) {
		fields[prefix+"alertThreshold"] = "must be between 0 and 100"
	}
	period, err := models.ParseBudgetPeriod(in.Period)
	if err != nil {
		fields[prefix+"period"] = "must be one of DAILY, WEEKLY, MONTHLY, YEARLY"
	}
	if len(fields) > 0 {
		return "", apperr.Validation(fields)
	}
	return period, nil
}

// SetCategoryBudget creates or replaces the budget for a category and period.
func (s *BudgetService) SetCategoryBudget(ctx context.Context, userID int64, in BudgetInput) (*BudgetView, error) {
	return s.setCategory(ctx, userID, in, "")
}

func (s *BudgetService) setCategory(ctx context.Context, userID int64, in BudgetInput, prefix string) (*BudgetView, error) {
	name := strings.TrimSpace(in.Category)
	if name == "" {
		return nil, apperr.Field(prefix+"category", "is required")
	}
	in.Limit = in.Limit.Round(2)
	period, err := validateBudget(in, prefix)
	if err != nil {
		return nil, err
	}
	cat, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, notFound(err, "Category not found: %s", name)
	}
	b := &models.Budget{
		UserID:         userID,
		CategoryID:     &cat.ID,
		Category:       cat,
		Limit:          in.Limit,
		Period:         period,
		AlertThreshold: in.AlertThreshold,
	}
	if err := s.budgets.Upsert(ctx, b); err != nil {
		return nil, err
	}
	return s.view(ctx, b)
}

// SetTotalBudget creates or replaces the total budget for a period.
func (s *BudgetService) SetTotalBudget(ctx context.Context, userID int64, in BudgetInput) (*BudgetView, error) {
	in.Limit = in.Limit.Round(2)
	period, err := validateBudget(in, "")
	if err != nil {
		return nil, err
	}
	b := &models.Budget{
		UserID:         userID,
		Limit:          in.Limit,
		Period:         period,
		AlertThreshold: in.AlertThreshold,
	}
	if err := s.budgets.Upsert(ctx, b); err != nil {
		return nil, err
	}
	return s.view(ctx, b)
}

// SetBatch applies several budgets. An entry without a category sets the total
// budget. Processing stops at the first failure.
func (s *BudgetService) SetBatch(ctx context.Context, userID int64, inputs []BudgetInput) ([]BudgetView, error) {
	if len(inputs) == 0 {
		return nil, apperr.Field("budgets", "must not be empty")
	}
	out := make([]BudgetView, 0, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("budgets[%d].", i)
		in.Limit = in.Limit.Round(2)
		var v *BudgetView
		var err error
		if strings.TrimSpace(in.Category) == "" {
			if _, err = validateBudget(in, prefix); err == nil {
				v, err = s.SetTotalBudget(ctx, userID, in)
			}
		} else {
			v, err = s.setCategory(ctx, userID, in, prefix)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// List returns the user's active budgets, optionally filtered by period, each
// evaluated against its current period.
func (s *BudgetService) List(ctx context.Context, userID int64, period *models.BudgetPeriod) ([]BudgetView, error) {
	budgets, err := s.budgets.ListActive(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	out := make([]BudgetView, 0, len(budgets))
	for i := range budgets {
		v, err := s.view(ctx, &budgets[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// GetForCategory returns the active budget for a category and period.
func (s *BudgetService) GetForCategory(ctx context.Context, userID int64, name string, period models.BudgetPeriod) (*BudgetView, error) {
	cat, err := s.categories.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, notFound(err, "Category not found: %s", name)
	}
	b, err := s.budgets.GetActiveForCategory(ctx, userID, cat.ID, period)
	if err != nil {
		return nil, notFound(err, "No %s budget for category: %s", period, cat.Name)
	}
	return s.view(ctx, b)
}

// GetTotal returns the active total budget for a period.
func (s *BudgetService) GetTotal(ctx context.Context, userID int64, period models.BudgetPeriod) (*BudgetView, error) {
	b, err := s.budgets.GetActiveTotal(ctx, userID, period)
	if err != nil {
		return nil, notFound(err, "No %s total budget", period)
	}
	return s.view(ctx, b)
}

// Delete removes one of the user's budgets.
func (s *BudgetService) Delete(ctx context.Context, userID int64, id int) error {
	b, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Budget not found: %d", id)
	}
	if b.UserID != userID {
		return apperr.Forbidden("You do not have access to this budget")
	}
	if err := s.budgets.Delete(ctx, id); err != nil {
		return notFound(err, "Budget not found: %d", id)
	}
	return nil
}

// LimitsMap returns the effective monthly limit per category name: the user's
// MONTHLY category budgets over the defaults.
func (s *BudgetService) LimitsMap(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	monthly := models.PeriodMonthly
	budgets, err := s.budgets.ListActive(ctx, userID, &monthly)
	if err != nil {
		return nil, err
	}
	return analytics.LimitsMap(budgets, s.defaults), nil
}

// Status evaluates every effective monthly limit against this month's spend,
// highest percent used first. Alert thresholds come from the user's MONTHLY
// category budgets.
func (s *BudgetService) Status(ctx context.Context, userID int64) ([]analytics.BudgetStatus, error) {
	monthly := models.PeriodMonthly
	budgets, err := s.budgets.ListActive(ctx, userID, &monthly)
	if err != nil {
		return nil, err
	}
	spent, err := s.MonthSpendByName(ctx, userID)
	if err != nil {
		return nil, err
	}
	icons, err := s.icons(ctx)
	if err != nil {
		return nil, err
	}

	limits := analytics.LimitsMap(budgets, s.defaults)
	statuses := analytics.EvaluateAll(limits, analytics.Thresholds(budgets), spent, icons)
	over := 0
	for _, st := range statuses {
		if st.IsOverBudget {
			over++
		}
	}
	s.metrics.BudgetOverLimit(ctx, over)
	return statuses, nil
}

// MonthSpendByName returns this month's spend keyed by category name.
func (s *BudgetService) MonthSpendByName(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	from, to := analytics.MonthRange(s.clock.Today())
	byID, err := s.expenses.SumPerCategory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	out := make(map[string]decimal.Decimal, len(byID))
	for id, total := range byID {
		name, ok := names[id]
		if !ok {
			cat, err := s.categories.GetByID(ctx, id)
			if err != nil {
				continue
			}
			name = cat.Name
		}
		out[name] = out[name].Add(total)
	}
	return out, nil
}

func (s *BudgetService) icons(ctx context.Context) (map[string]string, error) {
	cats, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cats))
	for _, c := range cats {
		out[c.Name] = c.Icon
	}
	return out, nil
}

func (s *BudgetService) view(ctx context.Context, b *models.Budget) (*BudgetView, error) {
	from, to := analytics.PeriodRange(b.Period, s.clock.Today())

	var spent decimal.Decimal
	var err error
	if b.IsTotal() {
		spent, err = s.expenses.SumByDateRange(ctx, b.UserID, from, to)
	} else {
		spent, err = s.expenses.SumByCategory(ctx, b.UserID, *b.CategoryID, &from, &to)
	}
	if err != nil {
		return nil, err
	}

	st := analytics.Evaluate(b.Limit, spent, b.AlertThreshold)
	v := &BudgetView{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Category:       totalBudgetName,
		Icon:           totalBudgetIcon,
		Color:          totalBudgetColor,
		Limit:          b.Limit,
		Period:         b.Period,
		AlertThreshold: b.AlertThreshold,
		Active:         b.Active,
		PeriodStart:    from.Format(time.DateOnly),
		PeriodEnd:      to.Format(time.DateOnly),
		Spent:          st.Spent,
		Remaining:      st.Remaining,
		PercentUsed:    st.PercentUsed,
		IsOverBudget:   st.IsOverBudget,
		IsNearLimit:    st.IsNearLimit,
	}
	if !b.IsTotal() {
		v.Category, v.Icon, v.Color = "", models.DefaultCategoryIcon, ""
		if b.Category != nil {
			v.Category = b.Category.Name
			if b.Category.Icon != "" {
				v.Icon = b.Category.Icon
			}
			v.Color = b.Category.Color
		}
	}
	return v, nil
}
