// Package bot relays Telegram messages to the chat agent and exposes a few
// read-only commands for linked users.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

// Authenticator checks account credentials.
type Authenticator interface {
	Verify(ctx context.Context, identifier, password string) (*models.User, error)
}

// Accounts resolves and links Telegram identities.
type Accounts interface {
	ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	LinkTelegram(ctx context.Context, userID, telegramID int64) error
}

// Chatter is the conversational backend.
type Chatter interface {
	Send(ctx context.Context, userID int64, message string) (*service.ChatReply, error)
	Reset(ctx context.Context, userID int64) (string, error)
}

// BudgetReporter reports the monthly budget status.
type BudgetReporter interface {
	Status(ctx context.Context, userID int64) ([]analytics.BudgetStatus, error)
}

// SpendingReporter reports the current month's category breakdown.
type SpendingReporter interface {
	CategoryBreakdown(ctx context.Context, userID int64) ([]analytics.CategorySpend, error)
}

// Deps are the services the relay talks to.
type Deps struct {
	Auth     Authenticator
	Accounts Accounts
	Chat     Chatter
	Budgets  BudgetReporter
	Spending SpendingReporter
}

func (d Deps) validate() error {
	if d.Auth == nil || d.Accounts == nil || d.Chat == nil || d.Budgets == nil || d.Spending == nil {
		return errors.New("bot: all dependencies are required")
	}
	return nil
}

// Bot wraps the Telegram client with application services.
type Bot struct {
	bot  *bot.Bot
	deps Deps
}

// New creates a Bot. It does not start polling.
func New(token string, deps Deps) (*Bot, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	b := &Bot{deps: deps}

	opts := []bot.Option{
		bot.WithMiddlewares(b.logMiddleware),
		bot.WithDefaultHandler(b.handleChat),
	}

	telegramBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

// newForTest builds a Bot without a Telegram client. Only the Core handlers are usable.
func newForTest(deps Deps) *Bot {
	return &Bot{deps: deps}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Telegram relay started polling")
	b.bot.Start(ctx)
	logger.Log.Info().Msg("Telegram relay stopped")
}

func (b *Bot) registerHandlers() {
	b.bot.RegisterHandlerMatchFunc(matchCommand("/start"), b.handleStart)
	b.bot.RegisterHandlerMatchFunc(matchCommand("/help"), b.handleHelp)
	b.bot.RegisterHandlerMatchFunc(matchCommand("/link"), b.handleLink)
	b.bot.RegisterHandlerMatchFunc(matchCommand("/reset"), b.handleReset)
	b.bot.RegisterHandlerMatchFunc(matchCommand("/budget"), b.handleBudget)
	b.bot.RegisterHandlerMatchFunc(matchCommand("/chart"), b.handleChart)
}

// matchCommand matches a message whose first word is command, with or
// without an @botname suffix. "/budgets" does not match "/budget".
func matchCommand(command string) bot.MatchFunc {
	return func(update *tgmodels.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		fields := strings.Fields(update.Message.Text)
		if len(fields) == 0 {
			return false
		}
		name, _, _ := strings.Cut(fields[0], "@")
		return name == command
	}
}

// logMiddleware drops updates without a sender and logs the rest with hashed identifiers.
func (b *Bot) logMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if extractUserID(update) == 0 {
			return
		}
		logUserAction(update)
		next(ctx, tgBot, update)
	}
}

func logUserAction(update *tgmodels.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	event := logger.Log.Info().
		Str("user_hash", logger.HashUserID(extractUserID(update))).
		Str("chat_hash", logger.HashChatID(msg.Chat.ID))
	if msg.Text != "" {
		event = event.Str("text", logger.SanitizeText(msg.Text))
	}
	event.Msg("Telegram input")
}

func extractUserID(update *tgmodels.Update) int64 {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return 0
	}
	return update.Message.From.ID
}
