package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// PeriodRange returns the inclusive calendar-day range of period containing today.
// Weeks start on Monday.
func PeriodRange(period models.BudgetPeriod, today time.Time) (time.Time, time.Time) {
	today = Day(today)
	switch period {
	case models.PeriodDaily:
		return today, today
	case models.PeriodWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		monday := today.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 6)
	case models.PeriodYearly:
		return YearRange(today)
	default:
		return MonthRange(today)
	}
}

// DefaultLimits returns the monthly limits applied to categories without a user budget.
func DefaultLimits() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"Food":          decimal.NewFromInt(200),
		"Transport":     decimal.NewFromInt(100),
		"Entertainment": decimal.NewFromInt(150),
		"Bills":         decimal.NewFromInt(300),
		"Shopping":      decimal.NewFromInt(250),
		"Health":        decimal.NewFromInt(200),
		"Education":     decimal.NewFromInt(150),
		"Grocery":       decimal.NewFromInt(300),
		"Investment":    decimal.NewFromInt(500),
		"Insurance":     decimal.NewFromInt(200),
		"Other":         decimal.NewFromInt(100),
	}
}

// MergeLimits overlays overrides onto base, matching names case-insensitively.
// The override's spelling wins. base is not modified.
func MergeLimits(base, overrides map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for name, limit := range overrides {
		for k := range out {
			if strings.EqualFold(k, name) {
				delete(out, k)
			}
		}
		out[name] = limit
	}
	return out
}

// LimitsMap merges the user's active MONTHLY category budgets over defaults.
func LimitsMap(budgets []models.Budget, defaults map[string]decimal.Decimal) map[string]decimal.Decimal {
	overrides := make(map[string]decimal.Decimal)
	for _, b := range budgets {
		if b.IsTotal() || b.Period != models.PeriodMonthly || !b.Active || b.Category == nil {
			continue
		}
		overrides[b.Category.Name] = b.Limit
	}
	return MergeLimits(defaults, overrides)
}

// Thresholds returns the alert threshold of every active MONTHLY category
// budget that has one, keyed by category name.
func Thresholds(budgets []models.Budget) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, b := range budgets {
		if b.IsTotal() || b.Period != models.PeriodMonthly || !b.Active || b.Category == nil || b.AlertThreshold == nil {
			continue
		}
		out[b.Category.Name] = *b.AlertThreshold
	}
	return out
}

// BudgetStatus compares spend against a limit.
type BudgetStatus struct {
	Category     string          `json:"category,omitempty"`
	Icon         string          `json:"icon,omitempty"`
	Limit        decimal.Decimal `json:"limit"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  decimal.Decimal `json:"percentUsed"`
	IsOverBudget bool            `json:"isOverBudget"`
	IsNearLimit  bool            `json:"isNearLimit"`
}

// Evaluate computes the status of one budget. Remaining may be negative.
// IsNearLimit needs a threshold; without one it is always false.
func Evaluate(limit, spent decimal.Decimal, threshold *decimal.Decimal) BudgetStatus {
	pct := Percentage(spent, limit)
	return BudgetStatus{
		Limit:        limit,
		Spent:        spent,
		Remaining:    limit.Sub(spent),
		PercentUsed:  pct,
		IsOverBudget: spent.GreaterThan(limit),
		IsNearLimit:  threshold != nil && pct.GreaterThanOrEqual(*threshold),
	}
}

// EvaluateAll evaluates every limit against spend keyed by category name and sorts
// by percent used, highest first. A limit with an entry in thresholds can be near
// its limit. Names match case-insensitively.
func EvaluateAll(limits, thresholds, spent map[string]decimal.Decimal, icons map[string]string) []BudgetStatus {
	lowerSpent := make(map[string]decimal.Decimal, len(spent))
	for k, v := range spent {
		lowerSpent[strings.ToLower(k)] = lowerSpent[strings.ToLower(k)].Add(v)
	}
	lowerThresholds := make(map[string]decimal.Decimal, len(thresholds))
	for k, v := range thresholds {
		lowerThresholds[strings.ToLower(k)] = v
	}

	out := make([]BudgetStatus, 0, len(limits))
	for name, limit := range limits {
		var threshold *decimal.Decimal
		if t, ok := lowerThresholds[strings.ToLower(name)]; ok {
			threshold = &t
		}
		s := Evaluate(limit, lowerSpent[strings.ToLower(name)], threshold)
		s.Category = name
		s.Icon = icons[name]
		if s.Icon == "" {
			s.Icon = models.DefaultCategoryIcon
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b BudgetStatus) int {
		if c := b.PercentUsed.Cmp(a.PercentUsed); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}
