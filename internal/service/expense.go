package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/gemini"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/parser"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
	"gitlab.com/yelinaung/finance-concierge/internal/telemetry"
)

// FallbackCategory receives structured expenses that name no category when no
// suggester is configured.
const FallbackCategory = "Other"

// regexModel is recorded in parsing logs for the rule-based parser.
const regexModel = "regex"

// ExpenseParser turns free text into an expense with an LLM.
type ExpenseParser interface {
	ParseExpense(ctx context.Context, message string, categories []string) (*gemini.ParsedExpense, error)
	Model() string
}

// CategorySuggester picks a category for a description.
type CategorySuggester interface {
	SuggestCategory(ctx context.Context, description string, categories []string) (*gemini.CategorySuggestion, error)
}

// ExpenseInput is a structured expense.
type ExpenseInput struct {
	Amount          decimal.Decimal  `json:"amount" binding:"required"`
	Category        string           `json:"category"`
	Currency        string           `json:"currency"`
	Description     string           `json:"description" binding:"max=500"`
	Date            *time.Time       `json:"-"`
	AIParsed        bool             `json:"aiParsed"`
	AIConfidence    *decimal.Decimal `json:"aiConfidence"`
	OriginalMessage string           `json:"originalMessage"`
}

// ExpenseService records and queries expenses.
type ExpenseService struct {
	expenses   ExpenseStore
	categories CategoryStore
	users      UserStore
	logs       ParsingLogStore
	parser     ExpenseParser
	suggester  CategorySuggester
	metrics    *telemetry.Metrics
	fallback   string
	clock      Clock
}

// ExpenseOption configures an ExpenseService.
type ExpenseOption func(*ExpenseService)

// WithAI enables LLM parsing and category suggestion. Either may be nil.
func WithAI(p ExpenseParser, s CategorySuggester) ExpenseOption {
	return func(svc *ExpenseService) {
		svc.parser = p
		svc.suggester = s
	}
}

// WithMetrics records expense counters.
func WithMetrics(m *telemetry.Metrics) ExpenseOption {
	return func(svc *ExpenseService) { svc.metrics = m }
}

// WithDefaultCurrency sets the currency used when neither the request nor the
// user names one.
func WithDefaultCurrency(code string) ExpenseOption {
	return func(svc *ExpenseService) { svc.fallback = strings.ToUpper(strings.TrimSpace(code)) }
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(expenses ExpenseStore, categories CategoryStore, users UserStore, logs ParsingLogStore, clock Clock, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		expenses:   expenses,
		categories: categories,
		users:      users,
		logs:       logs,
		fallback:   models.DefaultCurrency,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a structured expense.
func (s *ExpenseService) Create(ctx context.Context, userID int64, in ExpenseInput) (*models.Expense, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.Field("amount", "must be greater than 0")
	}

	name := strings.TrimSpace(in.Category)
	if name == "" {
		name = s.suggest(ctx, userID, in.Description)
	}
	cat, err := s.activeCategory(ctx, name)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency(ctx, userID)
	}

	date := s.clock.Today()
	if in.Date != nil {
		date = analytics.Day(*in.Date)
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = cat.Name
	}

	e := &models.Expense{
		UserID:          userID,
		CategoryID:      cat.ID,
		Category:        cat,
		Amount:          amount,
		Currency:        currency,
		Description:     desc,
		ExpenseDate:     date,
		AIParsed:        in.AIParsed,
		AIConfidence:    in.AIConfidence,
		OriginalMessage: in.OriginalMessage,
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, err
	}
	s.metrics.ExpenseCreated(ctx)

	logger.ForUser(userID).Debug().
		Int("expense_id", e.ID).
		Str("category", cat.Name).
		Str("description", logger.SanitizeDescription(desc)).
		Msg("Expense created")
	return e, nil
}

func (s *ExpenseService) suggest(ctx context.Context, userID int64, description string) string {
	if s.suggester == nil || strings.TrimSpace(description) == "" {
		return FallbackCategory
	}
	names, err := s.categoryNames(ctx)
	if err != nil || len(names) == 0 {
		return FallbackCategory
	}
	sug, err := s.suggester.SuggestCategory(ctx, description, names)
	if err != nil {
		logger.ForUser(userID).Warn().Err(err).Msg("Category suggestion failed, using fallback")
		return FallbackCategory
	}
	return sug.Category
}

func (s *ExpenseService) activeCategory(ctx context.Context, name string) (*models.Category, error) {
	cat, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, notFound(err, "Category not found: %s", name)
	}
	if !cat.Active {
		return nil, apperr.BadRequest("Category is inactive: %s", cat.Name)
	}
	return cat, nil
}

func (s *ExpenseService) defaultCurrency(ctx context.Context, userID int64) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.DefaultCurrency == "" {
		return s.fallback
	}
	return u.DefaultCurrency
}

func (s *ExpenseService) categoryNames(ctx context.Context) ([]string, error) {
	cats, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

// ParseAndCreate records an expense described in free text. The LLM parser is
// tried first when configured; the regex parser is the fallback. Every attempt
// is written to the parsing log.
func (s *ExpenseService) ParseAndCreate(ctx context.Context, userID int64, message string) (*models.Expense, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Field("message", "is required")
	}

	if s.parser != nil {
		e, err := s.parseWithAI(ctx, userID, message)
		if err == nil {
			return e, nil
		}
		if apperr.IsKind(err, apperr.KindNotFound) || apperr.IsKind(err, apperr.KindBadRequest) {
			logger.ForUser(userID).Debug().Err(err).Msg("AI category unusable, falling back to regex parser")
		} else {
			logger.ForUser(userID).Warn().Err(err).Msg("AI parsing failed, falling back to regex parser")
		}
	}
	return s.parseWithRegex(ctx, userID, message)
}

func (s *ExpenseService) parseWithAI(ctx context.Context, userID int64, message string) (*models.Expense, error) {
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	parsed, err := s.parser.ParseExpense(ctx, message, names)
	entry := &models.ParsingLog{
		UserID:          userID,
		OriginalMessage: message,
		Model:           s.parser.Model(),
		ProcessingMs:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
		s.writeLog(ctx, entry)
		return nil, err
	}

	confidence := decimal.NewFromFloat(parsed.Confidence).Round(2)
	entry.ParsedAmount = &parsed.Amount
	entry.ParsedCategory = parsed.Category
	entry.ParsedDescription = parsed.Description
	entry.Confidence = &confidence
	entry.RawResponse = parsed.Raw

	e, err := s.Create(ctx, userID, ExpenseInput{
		Amount:          parsed.Amount,
		Category:        parsed.Category,
		Currency:        parsed.Currency,
		Description:     parsed.Description,
		AIParsed:        true,
		AIConfidence:    &confidence,
		OriginalMessage: message,
	})
	if err != nil {
		entry.ErrorMessage = err.Error()
		s.writeLog(ctx, entry)
		return nil, err
	}
	entry.Success = true
	s.writeLog(ctx, entry)
	return e, nil
}

func (s *ExpenseService) parseWithRegex(ctx context.Context, userID int64, message string) (*models.Expense, error) {
	start := time.Now()
	parsed, err := parser.ParseExpense(message)
	entry := &models.ParsingLog{
		UserID:          userID,
		OriginalMessage: message,
		Model:           regexModel,
		ProcessingMs:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
		s.writeLog(ctx, entry)
		if errors.Is(err, parser.ErrNoAmount) {
			return nil, apperr.Field("message", "could not find an amount in the message")
		}
		return nil, err
	}

	entry.ParsedAmount = &parsed.Amount
	entry.ParsedCategory = parsed.Category
	entry.ParsedDescription = parsed.Description
	entry.Confidence = &parsed.Confidence

	category := parsed.Category
	if cats, err := s.categories.ListActive(ctx); err == nil {
		if match := parser.MatchCategory(category, cats); match != nil {
			category = match.Name
		} else {
			category = FallbackCategory
		}
	}

	e, err := s.Create(ctx, userID, ExpenseInput{
		Amount:          parsed.Amount,
		Category:        category,
		Currency:        parsed.Currency,
		Description:     parsed.Description,
		OriginalMessage: message,
	})
	if err != nil {
		entry.ErrorMessage = err.Error()
		s.writeLog(ctx, entry)
		return nil, err
	}
	entry.Success = true
	s.writeLog(ctx, entry)
	return e, nil
}

func (s *ExpenseService) writeLog(ctx context.Context, entry *models.ParsingLog) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		logger.ForUser(entry.UserID).Warn().Err(err).Msg("Failed to write parsing log")
	}
}

// ListByCategory returns all of the user's expenses in a category, newest first.
func (s *ExpenseService) ListByCategory(ctx context.Context, userID int64, name string) ([]models.Expense, error) {
	cat, err := s.categories.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, notFound(err, "Category not found: %s", name)
	}
	return s.expenses.ListByCategory(ctx, userID, cat.ID)
}

// ListByRange returns expenses dated within [from, to].
func (s *ExpenseService) ListByRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Expense, error) {
	from, to = analytics.Day(from), analytics.Day(to)
	if from.After(to) {
		return nil, apperr.BadRequest("Start date must be on or before end date")
	}
	return s.expenses.ListByDateRange(ctx, userID, from, to)
}

// ListCurrentMonth returns this calendar month's expenses.
func (s *ExpenseService) ListCurrentMonth(ctx context.Context, userID int64) ([]models.Expense, error) {
	from, to := analytics.MonthRange(s.clock.Today())
	return s.expenses.ListByDateRange(ctx, userID, from, to)
}

// TotalCurrentMonth sums this calendar month's expenses.
func (s *ExpenseService) TotalCurrentMonth(ctx context.Context, userID int64) (decimal.Decimal, error) {
	from, to := analytics.MonthRange(s.clock.Today())
	return s.expenses.SumByDateRange(ctx, userID, from, to)
}

// TotalByCategory sums a category, over all time or only the current month.
func (s *ExpenseService) TotalByCategory(ctx context.Context, userID int64, name string, currentMonthOnly bool) (decimal.Decimal, error) {
	cat, err := s.categories.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, apperr.NotFound("Category not found: %s", name)
		}
		return decimal.Zero, err
	}
	if !currentMonthOnly {
		return s.expenses.SumByCategory(ctx, userID, cat.ID, nil, nil)
	}
	from, to := analytics.MonthRange(s.clock.Today())
	return s.expenses.SumByCategory(ctx, userID, cat.ID, &from, &to)
}

// CategoryBreakdown groups this month's expenses by category.
func (s *ExpenseService) CategoryBreakdown(ctx context.Context, userID int64) ([]analytics.CategorySpend, error) {
	expenses, err := s.ListCurrentMonth(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.ByCategory(expenses), nil
}
