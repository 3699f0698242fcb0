package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"google.golang.org/genai"
)

const (
	// MaxToolRounds caps the model/tool exchanges for one message.
	MaxToolRounds = 5
	// AgentTimeout bounds a whole agent run.
	AgentTimeout = 60 * time.Second
)

var (
	// ErrAgentTimeout indicates the agent run exceeded AgentTimeout.
	ErrAgentTimeout = errors.New("agent timed out")
	// ErrTooManyToolCalls indicates the model kept calling tools past MaxToolRounds.
	ErrTooManyToolCalls = errors.New("agent exceeded tool call limit")
)

// Tool names exposed to the model.
const (
	ToolLogExpense    = "log_expense"
	ToolBudgetStatus  = "get_budget_status"
	ToolMonthlyReport = "create_monthly_report"
	ToolConvert       = "convert_currency"
)

// ToolExecutor performs agent tool calls on behalf of one user.
type ToolExecutor interface {
	LogExpense(ctx context.Context, userID int64, amount decimal.Decimal, category, description string) (string, error)
	BudgetStatus(ctx context.Context, userID int64, category string) (string, error)
	MonthlyReport(ctx context.Context, userID int64) (string, error)
	ConvertCurrency(ctx context.Context, userID int64, amount decimal.Decimal, from, to string) (string, error)
}

// Agent is the finance concierge: a Gemini function-calling loop over ToolExecutor.
type Agent struct {
	client *Client
	tools  ToolExecutor
}

// NewAgent creates an agent that executes tool calls with tools.
func NewAgent(client *Client, tools ToolExecutor) *Agent {
	return &Agent{client: client, tools: tools}
}

// Run answers prompt for userID. categories are the active category names
// the model may log expenses against.
func (a *Agent) Run(ctx context.Context, userID int64, prompt string, categories []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, AgentTimeout)
	defer cancel()

	log := logger.ForUser(userID)
	config := &genai.GenerateContentConfig{
		SystemInstruction: systemText(buildAgentInstruction(sanitizeCategories(categories))),
		Tools:             []*genai.Tool{{FunctionDeclarations: toolDeclarations()}},
	}
	contents := userText(prompt)

	for round := range MaxToolRounds {
		resp, err := a.client.generator.GenerateContent(ctx, a.client.model, contents, config)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", ErrAgentTimeout
			}
			return "", fmt.Errorf("agent generate: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", ErrNoResponse
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", ErrNoResponse
			}
			return text, nil
		}

		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			log.Debug().Str("tool", call.Name).Int("round", round).Msg("Agent tool call")
			parts = append(parts, &genai.Part{FunctionResponse: a.execute(ctx, userID, call)})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}

	return "", ErrTooManyToolCalls
}

func (a *Agent) execute(ctx context.Context, userID int64, call *genai.FunctionCall) *genai.FunctionResponse {
	out, err := a.dispatch(ctx, userID, call.Name, call.Args)
	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	if err != nil {
		logger.ForUser(userID).Warn().Err(err).Str("tool", call.Name).Msg("Agent tool failed")
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	resp.Response = map[string]any{"output": out}
	return resp
}

func (a *Agent) dispatch(ctx context.Context, userID int64, name string, args map[string]any) (string, error) {
	switch name {
	case ToolLogExpense:
		amount, err := argDecimal(args, "amount")
		if err != nil {
			return "", err
		}
		return a.tools.LogExpense(ctx, userID, amount, argString(args, "category"), argString(args, "description"))
	case ToolBudgetStatus:
		return a.tools.BudgetStatus(ctx, userID, argString(args, "category"))
	case ToolMonthlyReport:
		return a.tools.MonthlyReport(ctx, userID)
	case ToolConvert:
		amount, err := argDecimal(args, "amount")
		if err != nil {
			return "", err
		}
		return a.tools.ConvertCurrency(ctx, userID, amount, argString(args, "from_currency"), argString(args, "to_currency"))
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argDecimal(args map[string]any, key string) (decimal.Decimal, error) {
	switch v := args[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return decimal.Zero, fmt.Errorf("argument %s is not a number: %q", key, v)
		}
		return decimal.NewFromString(v)
	case nil:
		return decimal.Zero, fmt.Errorf("missing argument %s", key)
	}
	return decimal.Zero, fmt.Errorf("argument %s has unexpected type %T", key, args[key])
}

func toolDeclarations() []*genai.FunctionDeclaration {
	str := func(desc string) *genai.Schema { return &genai.Schema{Type: genai.TypeString, Description: desc} }
	num := func(desc string) *genai.Schema { return &genai.Schema{Type: genai.TypeNumber, Description: desc} }

	return []*genai.FunctionDeclaration{
		{
			Name:        ToolLogExpense,
			Description: "Record an expense for the user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"amount":      num("Amount spent"),
					"category":    str("Category name from the available list"),
					"description": str("Short description of the expense"),
				},
				Required: []string{"amount", "category", "description"},
			},
		},
		{
			Name:        ToolBudgetStatus,
			Description: "Get how much of the monthly budget for a category has been spent.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"category": str("Category name")},
				Required:   []string{"category"},
			},
		},
		{
			Name:        ToolMonthlyReport,
			Description: "Summarise this month's spending by category.",
		},
		{
			Name:        ToolConvert,
			Description: "Convert an amount between two currencies at the latest rate.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"amount":        num("Amount to convert"),
					"from_currency": str("3-letter source currency code"),
					"to_currency":   str("3-letter target currency code"),
				},
				Required: []string{"amount", "from_currency", "to_currency"},
			},
		},
	}
}

func buildAgentInstruction(categories []string) string {
	return fmt.Sprintf(`You are a friendly personal finance concierge.

Help the user track expenses, check budgets and understand their spending.

When the user mentions spending money, call log_expense with the amount, the best matching category and a short description.
Available categories: %s
Keyword hints: coffee, lunch, dinner, restaurant -> Food; uber, taxi, grab, bus, train -> Transport; movie, netflix, concert -> Entertainment; electricity, rent, phone -> Bills; supermarket -> Grocery; doctor, pharmacy -> Health.
If nothing matches, use Other.

Use get_budget_status for budget questions, create_monthly_report for monthly summaries and convert_currency for conversions.
Never invent numbers; only report what the tools return. Keep replies short.`,
		strings.Join(categories, ", "))
}
