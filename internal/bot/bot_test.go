package bot

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/bot/mocks"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	appmodels "gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

const (
	testChatID     int64 = 12345
	testTelegramID int64 = 777
)

func TestMain(m *testing.M) {
	logger.InitHashSaltForTesting("test-salt-for-bot-package-0123456789")
	os.Exit(m.Run())
}

type fakeAuth struct {
	user *appmodels.User
	err  error
}

func (f *fakeAuth) Verify(_ context.Context, identifier, password string) (*appmodels.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if identifier != f.user.Email || password != "correct-horse" {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return f.user, nil
}

type fakeAccounts struct {
	mu      sync.Mutex
	byTG    map[int64]*appmodels.User
	linkErr error
	lookErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byTG: map[int64]*appmodels.User{}}
}

func (f *fakeAccounts) ByTelegramID(_ context.Context, telegramID int64) (*appmodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookErr != nil {
		return nil, f.lookErr
	}
	u, ok := f.byTG[telegramID]
	if !ok {
		return nil, apperr.NotFound("No account is linked to this Telegram user")
	}
	return u, nil
}

func (f *fakeAccounts) LinkTelegram(_ context.Context, userID, telegramID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkErr != nil {
		return f.linkErr
	}
	f.byTG[telegramID] = &appmodels.User{ID: userID, Username: "alice", DefaultCurrency: "USD"}
	return nil
}

type fakeChat struct {
	mu       sync.Mutex
	response string
	err      error
	sent     []string
	resets   int
}

func (f *fakeChat) Send(_ context.Context, userID int64, message string) (*service.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, message)
	return &service.ChatReply{Response: f.response, UserID: userID}, nil
}

func (f *fakeChat) Reset(context.Context, int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return "Session reset. Starting a fresh conversation.", nil
}

type fakeBudgets struct {
	statuses []analytics.BudgetStatus
	err      error
}

func (f *fakeBudgets) Status(context.Context, int64) ([]analytics.BudgetStatus, error) {
	return f.statuses, f.err
}

type fakeSpending struct {
	breakdown []analytics.CategorySpend
	err       error
}

func (f *fakeSpending) CategoryBreakdown(context.Context, int64) ([]analytics.CategorySpend, error) {
	return f.breakdown, f.err
}

type fixture struct {
	bot      *Bot
	tg       *mocks.MockBot
	accounts *fakeAccounts
	chat     *fakeChat
	budgets  *fakeBudgets
	spending *fakeSpending
}

func newFixture(linked bool) *fixture {
	f := &fixture{
		tg:       mocks.NewMockBot(),
		accounts: newFakeAccounts(),
		chat:     &fakeChat{response: "Logged $12.50 to Food"},
		budgets:  &fakeBudgets{},
		spending: &fakeSpending{},
	}
	if linked {
		f.accounts.byTG[testTelegramID] = &appmodels.User{ID: 1, Username: "alice", DefaultCurrency: "USD"}
	}
	f.bot = newForTest(Deps{
		Auth:     &fakeAuth{user: &appmodels.User{ID: 1, Email: "alice@example.com", Username: "alice"}},
		Accounts: f.accounts,
		Chat:     f.chat,
		Budgets:  f.budgets,
		Spending: f.spending,
	})
	return f
}

func TestNewRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := New("token", Deps{})
	require.Error(t, err)
}

func TestExtractCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text, command, want string
	}{
		{"/link a b", "/link", "a b"},
		{"/link@concierge_bot a b", "/link", "a b"},
		{"/link@concierge_bot", "/link", ""},
		{"/link", "/link", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractCommandArgs(tt.text, tt.command))
		})
	}
}

func TestMatchCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text, command string
		want          bool
	}{
		{"/budget", "/budget", true},
		{"/budget@concierge_bot", "/budget", true},
		{"/link alice@example.com secret", "/link", true},
		{"/link\nalice", "/link", true},
		{"/budgets", "/budget", false},
		{"/linkfoo", "/link", false},
		{"/link@bot extra", "/linkfoo", false},
		{"please /link me", "/link", false},
		{"", "/link", false},
	}
	for _, tt := range tests {
		t.Run(tt.command+" "+tt.text, func(t *testing.T) {
			t.Parallel()
			update := mocks.MessageUpdate(testChatID, testTelegramID, tt.text)
			require.Equal(t, tt.want, matchCommand(tt.command)(update))
		})
	}

	t.Run("update without message", func(t *testing.T) {
		t.Parallel()
		require.False(t, matchCommand("/start")(&models.Update{}))
	})
}

func TestHandleHelpCore(t *testing.T) {
	t.Parallel()

	f := newFixture(false)
	f.bot.handleHelpCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/help"))

	msg := f.tg.LastSentMessage()
	require.NotNil(t, msg)
	require.Equal(t, testChatID, msg.ChatID)
	require.Equal(t, models.ParseModeHTML, msg.ParseMode)
	require.Contains(t, msg.Text, "/link")
}

func TestHandleLinkCore(t *testing.T) {
	t.Parallel()

	t.Run("links on valid credentials and deletes the message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		update := mocks.NewUpdateBuilder().
			WithMessage(testChatID, testTelegramID, "/link alice@example.com correct-horse").
			WithMessageID(42).
			Build()

		f.bot.handleLinkCore(context.Background(), f.tg, update)

		require.Equal(t, 1, f.tg.DeletedMessageCount())
		require.Equal(t, 42, f.tg.DeletedMessages[0].MessageID)
		require.Contains(t, f.tg.LastSentMessage().Text, "Linked to <b>alice</b>")
		_, err := f.accounts.ByTelegramID(context.Background(), testTelegramID)
		require.NoError(t, err)
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		f.bot.handleLinkCore(context.Background(), f.tg,
			mocks.CommandUpdate(testChatID, testTelegramID, "/link alice@example.com wrong"))

		require.Equal(t, "❌ Invalid credentials.", f.tg.LastSentMessage().Text)
		require.Empty(t, f.accounts.byTG)
	})

	t.Run("shows usage when arguments are missing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		f.bot.handleLinkCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/link alice"))

		require.Equal(t, linkUsage, f.tg.LastSentMessage().Text)
	})

	t.Run("still replies when delete fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		f.tg.DeleteMessageError = errors.New("message can't be deleted")
		f.bot.handleLinkCore(context.Background(), f.tg,
			mocks.CommandUpdate(testChatID, testTelegramID, "/link alice@example.com correct-horse"))

		require.Contains(t, f.tg.LastSentMessage().Text, "Linked")
	})

	t.Run("reports link failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		f.accounts.linkErr = apperr.NotFound("User not found")
		f.bot.handleLinkCore(context.Background(), f.tg,
			mocks.CommandUpdate(testChatID, testTelegramID, "/link alice@example.com correct-horse"))

		require.Equal(t, "⚠️ User not found", f.tg.LastSentMessage().Text)
	})
}

func TestHandleChatCore(t *testing.T) {
	t.Parallel()

	t.Run("relays text from a linked user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "spent 12.50 on lunch"))

		require.Equal(t, []string{"spent 12.50 on lunch"}, f.chat.sent)
		require.Equal(t, "Logged $12.50 to Food", f.tg.LastSentMessage().Text)
	})

	t.Run("hints unlinked users", func(t *testing.T) {
		t.Parallel()
		f := newFixture(false)
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "hello"))

		require.Empty(t, f.chat.sent)
		require.Equal(t, linkHint, f.tg.LastSentMessage().Text)
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.bot.handleChatCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/frobnicate"))

		require.Empty(t, f.chat.sent)
		require.Contains(t, f.tg.LastSentMessage().Text, "Unknown command")
	})

	t.Run("ignores empty text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "   "))

		require.Zero(t, f.tg.SentMessageCount())
	})

	t.Run("agent errors are shown without internals", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.chat.err = apperr.Chat(errors.New("quota exceeded"), "The assistant is unavailable right now")
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "hi"))

		text := f.tg.LastSentMessage().Text
		require.Equal(t, "⚠️ The assistant is unavailable right now", text)
		require.NotContains(t, text, "quota")
	})

	t.Run("internal errors get the generic reply", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.chat.err = errors.New("connection refused")
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "hi"))

		require.Equal(t, genericFailure, f.tg.LastSentMessage().Text)
	})

	t.Run("long replies are split", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.chat.response = strings.Repeat("a", maxMessageRunes+10)
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "report"))

		require.Equal(t, 2, f.tg.SentMessageCount())
	})

	t.Run("account lookup failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.accounts.lookErr = errors.New("db down")
		f.bot.handleChatCore(context.Background(), f.tg, mocks.MessageUpdate(testChatID, testTelegramID, "hi"))

		require.Empty(t, f.chat.sent)
		require.Equal(t, genericFailure, f.tg.LastSentMessage().Text)
	})
}

func TestHandleResetCore(t *testing.T) {
	t.Parallel()

	f := newFixture(true)
	f.bot.handleResetCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/reset"))

	require.Equal(t, 1, f.chat.resets)
	require.Contains(t, f.tg.LastSentMessage().Text, "Session reset")
}

func TestHandleBudgetCore(t *testing.T) {
	t.Parallel()

	t.Run("formats statuses", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.budgets.statuses = []analytics.BudgetStatus{
			{Category: "Food", Icon: "🍔", Limit: decimal.NewFromInt(200), Spent: decimal.NewFromInt(250), PercentUsed: decimal.NewFromInt(125), IsOverBudget: true},
			{Category: "Transport", Icon: "🚗", Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(40), PercentUsed: decimal.NewFromInt(40)},
		}
		f.bot.handleBudgetCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/budget"))

		text := f.tg.LastSentMessage().Text
		require.Contains(t, text, "🚨 🍔 Food: $250.00 / $200.00 (125.0%)")
		require.Contains(t, text, "✅ 🚗 Transport: $40.00 / $100.00 (40.0%)")
	})

	t.Run("no budgets", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.bot.handleBudgetCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/budget"))

		require.Equal(t, "No budgets set yet.", f.tg.LastSentMessage().Text)
	})
}

func TestHandleChartCore(t *testing.T) {
	t.Parallel()

	t.Run("sends a png", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.spending.breakdown = []analytics.CategorySpend{
			{Name: "Food", Total: decimal.NewFromInt(120), Count: 3},
			{Name: "Transport", Total: decimal.NewFromInt(40), Count: 2},
		}
		f.bot.handleChartCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/chart"))

		doc := f.tg.LastSentDocument()
		require.NotNil(t, doc)
		require.Equal(t, "spending.png", doc.Filename)
		require.Positive(t, doc.Size)
	})

	t.Run("empty month", func(t *testing.T) {
		t.Parallel()
		f := newFixture(true)
		f.bot.handleChartCore(context.Background(), f.tg, mocks.CommandUpdate(testChatID, testTelegramID, "/chart"))

		require.Zero(t, f.tg.SentDocumentCount())
		require.Contains(t, f.tg.LastSentMessage().Text, "No expenses")
	})
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("line one\nline two\nline three", 12)
	require.Equal(t, []string{"line one", "line two", "line three"}, parts)

	parts = splitMessage(strings.Repeat("é", 25), 10)
	require.Len(t, parts, 3)
	require.Equal(t, 10, len([]rune(parts[0])))
}

func TestReplyText(t *testing.T) {
	t.Parallel()

	require.Equal(t, genericFailure, replyText(errors.New("boom")))
	require.Equal(t, "⚠️ must be greater than 0", replyText(apperr.Field("amount", "must be greater than 0")))
	require.Equal(t, "⚠️ Category not found", replyText(apperr.NotFound("Category not found")))
}
