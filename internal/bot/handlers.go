package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/chart"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// maxMessageRunes is Telegram's limit for a single text message.
const maxMessageRunes = 4096

const (
	genericFailure = "❌ Something went wrong. Please try again later."
	linkHint       = "🔗 Link your account first: /link <email> <password>"
	linkUsage      = "Usage: /link <email> <password>"
)

const helpText = `👋 <b>Finance Concierge</b>

Talk to me in plain language, for example:
• <code>spent 12.50 on lunch</code>
• <code>how am I doing on my food budget?</code>
• <code>convert 100 USD to SGD</code>

<b>Commands:</b>
• <code>/link &lt;email&gt; &lt;password&gt;</code> - Link this chat to your account
• <code>/budget</code> - Budget status for this month
• <code>/chart</code> - Spending by category as a chart
• <code>/reset</code> - Start a fresh conversation
• <code>/help</code> - Show this message`

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, helpText, tgmodels.ParseModeHTML)
}

func (b *Bot) handleLink(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleLinkCore(ctx, tgBot, update)
}

// handleLinkCore verifies the credentials and links the sender's Telegram ID.
// The command message carries a password, so it is deleted first.
func (b *Bot) handleLinkCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if _, err := tg.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: msg.ID}); err != nil {
		logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to delete /link message")
	}

	fields := strings.Fields(extractCommandArgs(msg.Text, "/link"))
	if len(fields) != 2 {
		b.reply(ctx, tg, chatID, linkUsage, "")
		return
	}

	user, err := b.deps.Auth.Verify(ctx, fields[0], fields[1])
	if err != nil {
		if apperr.IsKind(err, apperr.KindUnauthorized) {
			b.reply(ctx, tg, chatID, "❌ Invalid credentials.", "")
			return
		}
		logger.Log.Error().Err(err).Msg("Telegram link verification failed")
		b.reply(ctx, tg, chatID, genericFailure, "")
		return
	}

	if err := b.deps.Accounts.LinkTelegram(ctx, user.ID, msg.From.ID); err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Failed to link Telegram account")
		b.reply(ctx, tg, chatID, replyText(err), "")
		return
	}

	b.reply(ctx, tg, chatID,
		fmt.Sprintf("✅ Linked to <b>%s</b>. Send me a message to get started.", html.EscapeString(user.Username)),
		tgmodels.ParseModeHTML)
}

func (b *Bot) handleReset(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleResetCore(ctx, tgBot, update)
}

func (b *Bot) handleResetCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	user, ok := b.linkedUser(ctx, tg, update)
	if !ok {
		return
	}
	text, err := b.deps.Chat.Reset(ctx, user.ID)
	if err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Session reset failed")
		b.reply(ctx, tg, update.Message.Chat.ID, replyText(err), "")
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, "🔄 "+text, "")
}

func (b *Bot) handleBudget(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleBudgetCore(ctx, tgBot, update)
}

func (b *Bot) handleBudgetCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	user, ok := b.linkedUser(ctx, tg, update)
	if !ok {
		return
	}
	statuses, err := b.deps.Budgets.Status(ctx, user.ID)
	if err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Budget status failed")
		b.reply(ctx, tg, update.Message.Chat.ID, replyText(err), "")
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, formatBudgetStatus(statuses, currencySymbol(user.DefaultCurrency)), tgmodels.ParseModeHTML)
}

func formatBudgetStatus(statuses []analytics.BudgetStatus, symbol string) string {
	if len(statuses) == 0 {
		return "No budgets set yet."
	}
	var sb strings.Builder
	sb.WriteString("📊 <b>Budgets this month</b>\n")
	for _, s := range statuses {
		marker := "✅"
		switch {
		case s.IsOverBudget:
			marker = "🚨"
		case s.IsNearLimit:
			marker = "⚠️"
		}
		fmt.Fprintf(&sb, "\n%s %s %s: %s%s / %s%s (%s%%)",
			marker, s.Icon, html.EscapeString(s.Category),
			symbol, s.Spent.StringFixed(2), symbol, s.Limit.StringFixed(2),
			s.PercentUsed.StringFixed(1))
	}
	return sb.String()
}

func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	user, ok := b.linkedUser(ctx, tg, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	breakdown, err := b.deps.Spending.CategoryBreakdown(ctx, user.ID)
	if err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Category breakdown failed")
		b.reply(ctx, tg, chatID, replyText(err), "")
		return
	}

	png, err := chart.CategoryPie(breakdown, "Spending this month")
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			b.reply(ctx, tg, chatID, "📭 No expenses this month yet.", "")
			return
		}
		logger.ForUser(user.ID).Error().Err(err).Msg("Failed to render chart")
		b.reply(ctx, tg, chatID, genericFailure, "")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &tgmodels.InputFileUpload{
			Filename: "spending.png",
			Data:     bytes.NewReader(png),
		},
		Caption: "📈 Spending by category this month",
	})
	if err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Failed to send chart")
	}
}

// handleChat is the default handler: free text from a linked user goes to the agent.
func (b *Bot) handleChat(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleChatCore(ctx, tgBot, update)
}

func (b *Bot) handleChatCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		b.reply(ctx, tg, msg.Chat.ID, "Unknown command. Try /help.", "")
		return
	}

	user, ok := b.linkedUser(ctx, tg, update)
	if !ok {
		return
	}

	reply, err := b.deps.Chat.Send(ctx, user.ID, msg.Text)
	if err != nil {
		logger.ForUser(user.ID).Error().Err(err).Msg("Chat relay failed")
		b.reply(ctx, tg, msg.Chat.ID, replyText(err), "")
		return
	}
	for _, part := range splitMessage(reply.Response, maxMessageRunes) {
		b.reply(ctx, tg, msg.Chat.ID, part, "")
	}
}

// linkedUser resolves the sender's account. When it returns false a reply has already been sent.
func (b *Bot) linkedUser(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) (*models.User, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil, false
	}
	user, err := b.deps.Accounts.ByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			b.reply(ctx, tg, msg.Chat.ID, linkHint, "")
			return nil, false
		}
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to resolve Telegram user")
		b.reply(ctx, tg, msg.Chat.ID, genericFailure, "")
		return nil, false
	}
	return user, true
}

func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string, mode tgmodels.ParseMode) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: mode,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// replyText turns an error into something safe to show in chat.
func replyText(err error) string {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		return genericFailure
	}
	if len(e.Fields) > 0 {
		keys := slices.Sorted(maps.Keys(e.Fields))
		return "⚠️ " + e.Fields[keys[0]]
	}
	return "⚠️ " + e.Message
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func currencySymbol(code string) string {
	if sym, ok := models.SupportedCurrencies[code]; ok {
		return sym
	}
	if code == "" {
		return "$"
	}
	return code + " "
}
