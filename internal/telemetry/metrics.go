package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "gitlab.com/yelinaung/finance-concierge"

// Metrics holds the application instruments. A nil *Metrics records nothing.
type Metrics struct {
	expensesCreated metric.Int64Counter
	chatMessages    metric.Int64Counter
	agentDuration   metric.Float64Histogram
	budgetOverLimit metric.Int64Counter
}

// NewMetrics creates the instruments on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.expensesCreated, err = meter.Int64Counter("expenses.created",
		metric.WithDescription("Expenses recorded")); err != nil {
		return nil, fmt.Errorf("expenses.created: %w", err)
	}
	if m.chatMessages, err = meter.Int64Counter("chat.messages",
		metric.WithDescription("Chat messages answered")); err != nil {
		return nil, fmt.Errorf("chat.messages: %w", err)
	}
	if m.agentDuration, err = meter.Float64Histogram("chat.agent.duration",
		metric.WithDescription("Agent run time"), metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("chat.agent.duration: %w", err)
	}
	if m.budgetOverLimit, err = meter.Int64Counter("budget.over_limit",
		metric.WithDescription("Budget evaluations reporting over budget")); err != nil {
		return nil, fmt.Errorf("budget.over_limit: %w", err)
	}
	return &m, nil
}

// ExpenseCreated counts one recorded expense.
func (m *Metrics) ExpenseCreated(ctx context.Context) {
	if m != nil {
		m.expensesCreated.Add(ctx, 1)
	}
}

// ChatMessage counts one answered chat message.
func (m *Metrics) ChatMessage(ctx context.Context) {
	if m != nil {
		m.chatMessages.Add(ctx, 1)
	}
}

// AgentDuration records how long one agent run took.
func (m *Metrics) AgentDuration(ctx context.Context, d time.Duration) {
	if m != nil {
		m.agentDuration.Record(ctx, float64(d.Microseconds())/1000)
	}
}

// BudgetOverLimit counts n over-budget results from one evaluation.
func (m *Metrics) BudgetOverLimit(ctx context.Context, n int) {
	if m != nil && n > 0 {
		m.budgetOverLimit.Add(ctx, int64(n))
	}
}
