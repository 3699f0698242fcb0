package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/gemini"
)

var _ gemini.ToolExecutor = (*AgentTools)(nil)

// AgentTools executes agent tool calls against the services. The user is always
// passed explicitly by the agent loop.
type AgentTools struct {
	expenses   *ExpenseService
	budgets    *BudgetService
	currencies *CurrencyService
	clock      Clock
}

// NewAgentTools creates AgentTools.
func NewAgentTools(expenses *ExpenseService, budgets *BudgetService, currencies *CurrencyService, clock Clock) *AgentTools {
	return &AgentTools{expenses: expenses, budgets: budgets, currencies: currencies, clock: clock}
}

// LogExpense records an expense.
func (t *AgentTools) LogExpense(ctx context.Context, userID int64, amount decimal.Decimal, category, description string) (string, error) {
	e, err := t.expenses.Create(ctx, userID, ExpenseInput{
		Amount:      amount,
		Category:    category,
		Description: description,
		AIParsed:    true,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Logged $%s to %s", e.Amount.StringFixed(2), e.CategoryName()), nil
}

// BudgetStatus describes this month's spend against the category's limit.
func (t *AgentTools) BudgetStatus(ctx context.Context, userID int64, category string) (string, error) {
	limits, err := t.budgets.LimitsMap(ctx, userID)
	if err != nil {
		return "", err
	}
	name, limit, ok := lookupFold(limits, strings.TrimSpace(category))
	if !ok {
		return "No budget defined for category: " + category, nil
	}
	spentByName, err := t.budgets.MonthSpendByName(ctx, userID)
	if err != nil {
		return "", err
	}
	_, spent, _ := lookupFold(spentByName, name)
	return fmt.Sprintf("You have spent $%s out of $%s on %s. Remaining: $%s.",
		spent.StringFixed(2), limit.StringFixed(2), name, limit.Sub(spent).StringFixed(2)), nil
}

func lookupFold(m map[string]decimal.Decimal, key string) (string, decimal.Decimal, bool) {
	if v, ok := m[key]; ok {
		return key, v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return k, v, true
		}
	}
	return key, decimal.Zero, false
}

type monthlyReport struct {
	Month            string                     `json:"month"`
	CategoryTotals   map[string]decimal.Decimal `json:"categoryTotals"`
	GrandTotal       decimal.Decimal            `json:"grandTotal"`
	TransactionCount int                        `json:"transactionCount"`
}

// MonthlyReport returns this month's totals as JSON.
func (t *AgentTools) MonthlyReport(ctx context.Context, userID int64) (string, error) {
	expenses, err := t.expenses.ListCurrentMonth(ctx, userID)
	if err != nil {
		return "", err
	}
	report := monthlyReport{
		Month:            t.clock.Today().Format("2006-01"),
		CategoryTotals:   make(map[string]decimal.Decimal),
		GrandTotal:       analytics.Total(expenses),
		TransactionCount: len(expenses),
	}
	for _, row := range analytics.ByCategory(expenses) {
		report.CategoryTotals[row.Name] = row.Total
	}
	out, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(out), nil
}

// ConvertCurrency converts an amount at the latest rate.
func (t *AgentTools) ConvertCurrency(ctx context.Context, _ int64, amount decimal.Decimal, from, to string) (string, error) {
	res, err := t.currencies.Convert(ctx, amount, from, to)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s = %s %s (rate %s)",
		res.Original.StringFixed(2), res.From, res.Amount.StringFixed(2), res.To, res.Rate.String()), nil
}
