package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

func TestSessionService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates once and caches", func(t *testing.T) {
		t.Parallel()
		store := newFakeSessions()
		svc := NewSessionService(store)

		first, err := svc.GetOrCreate(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, AppName, first.AppName)
		require.Len(t, first.SessionID, 36)

		second, err := svc.GetOrCreate(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, first.SessionID, second.SessionID)
		require.Equal(t, 1, store.upserts)
		require.True(t, svc.HasSession(1))
	})

	t.Run("resumes persisted session", func(t *testing.T) {
		t.Parallel()
		store := newFakeSessions()
		require.NoError(t, store.Upsert(ctx, &models.ChatSession{UserID: 3, SessionID: "persisted", AppName: AppName}))
		svc := NewSessionService(store)

		got, err := svc.GetOrCreate(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, "persisted", got.SessionID)
		require.Equal(t, 1, store.upserts)
	})

	t.Run("concurrent callers share one session", func(t *testing.T) {
		t.Parallel()
		store := newFakeSessions()
		svc := NewSessionService(store)

		var wg sync.WaitGroup
		ids := make([]string, 16)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := svc.GetOrCreate(ctx, 9)
				if err == nil {
					ids[i] = s.SessionID
				}
			}()
		}
		wg.Wait()
		for _, id := range ids {
			require.Equal(t, ids[0], id)
		}
		require.Equal(t, 1, store.upserts)
	})

	t.Run("reset reports whether a session existed", func(t *testing.T) {
		t.Parallel()
		svc := NewSessionService(newFakeSessions())

		msg, err := svc.Reset(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, noResetMessage, msg)

		old, err := svc.GetOrCreate(ctx, 4)
		require.NoError(t, err)
		msg, err = svc.Reset(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, resetMessage, msg)
		require.False(t, svc.HasSession(4))

		fresh, err := svc.GetOrCreate(ctx, 4)
		require.NoError(t, err)
		require.NotEqual(t, old.SessionID, fresh.SessionID)
	})

	t.Run("store failure is a session error", func(t *testing.T) {
		t.Parallel()
		store := newFakeSessions()
		store.err = errors.New("db down")
		_, err := NewSessionService(store).GetOrCreate(ctx, 5)
		require.True(t, apperr.IsKind(err, apperr.KindSession))
	})

	t.Run("sweep evicts idle sessions", func(t *testing.T) {
		t.Parallel()
		store := newFakeSessions()
		svc := NewSessionService(store)
		_, err := svc.GetOrCreate(ctx, 6)
		require.NoError(t, err)

		n, err := svc.SweepIdle(ctx, fixedNow.Add(-time.Hour))
		require.NoError(t, err)
		require.Zero(t, n)
		require.True(t, svc.HasSession(6))

		n, err = svc.SweepIdle(ctx, fixedNow.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.False(t, svc.HasSession(6))
	})
}

type recordingAgent struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	cats    []string
}

func (a *recordingAgent) Run(_ context.Context, _ int64, prompt string, categories []string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, prompt)
	a.cats = categories
	return a.reply, a.err
}

func newChat(agent Agent) (*ChatService, *fakeHistory, *fakeSessions) {
	history, sessions := &fakeHistory{}, newFakeSessions()
	svc := NewChatService(agent, NewSessionService(sessions), history, NewCategoryService(newFakeCategories()), nil, fixedClock())
	return svc, history, sessions
}

func TestChatService_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first message is sent bare", func(t *testing.T) {
		t.Parallel()
		agent := &recordingAgent{reply: "Logged $5.00 to Food"}
		svc, history, sessions := newChat(agent)

		reply, err := svc.Send(ctx, 1, "  coffee 5  ")
		require.NoError(t, err)
		require.Equal(t, "Logged $5.00 to Food", reply.Response)
		require.Equal(t, int64(1), reply.UserID)
		require.NotEmpty(t, reply.SessionID)
		require.Len(t, reply.ConversationID, 36)
		require.Equal(t, fixedNow, reply.Timestamp)

		require.Equal(t, []string{"coffee 5"}, agent.prompts)
		require.Contains(t, agent.cats, "Food")
		require.NotContains(t, agent.cats, "Legacy")

		require.Len(t, history.rows, 1)
		require.Equal(t, models.MessageTypeChat, history.rows[0].MessageType)
		require.Equal(t, reply.SessionID, history.rows[0].SessionID)
		require.Equal(t, 1, sessions.touches)
	})

	t.Run("later messages carry history", func(t *testing.T) {
		t.Parallel()
		agent := &recordingAgent{reply: "ok"}
		svc, _, _ := newChat(agent)

		_, err := svc.Send(ctx, 1, "hello")
		require.NoError(t, err)
		_, err = svc.Send(ctx, 1, "how much on food?")
		require.NoError(t, err)

		want := "Previous conversation history:\nUser: hello\nAssistant: ok\n\n\nCurrent message:\nhow much on food?"
		require.Equal(t, want, agent.prompts[1])
	})

	t.Run("context is limited to the last ten exchanges", func(t *testing.T) {
		t.Parallel()
		agent := &recordingAgent{reply: "ok"}
		svc, _, _ := newChat(agent)
		for range 12 {
			_, err := svc.Send(ctx, 1, "msg")
			require.NoError(t, err)
		}
		last := agent.prompts[len(agent.prompts)-1]
		require.Equal(t, 10, strings.Count(last, "User: msg"))
	})

	t.Run("rejects empty message", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newChat(&recordingAgent{})
		_, err := svc.Send(ctx, 1, " ")
		require.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("agent failure is a chat error and is not saved", func(t *testing.T) {
		t.Parallel()
		svc, history, _ := newChat(&recordingAgent{err: errors.New("quota")})
		_, err := svc.Send(ctx, 1, "hi")
		require.True(t, apperr.IsKind(err, apperr.KindChat))
		require.Empty(t, history.rows)
	})

	t.Run("no agent configured", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newChat(nil)
		_, err := svc.Send(ctx, 1, "hi")
		require.True(t, apperr.IsKind(err, apperr.KindChat))
		require.Equal(t, ChatHealth{Status: "DOWN"}, svc.Health())
	})
}

func TestChatService_History(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newChat(&recordingAgent{reply: "ok"})
	for _, m := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, 1, m)
		require.NoError(t, err)
	}

	msgs, err := svc.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "one", msgs[0].UserMessage)

	msgs, err = svc.History(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, "two", msgs[0].UserMessage)

	empty, err := svc.History(ctx, 2, 5)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	_, err = svc.History(ctx, 1, 101)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.Equal(t, ChatHealth{Status: "UP", AgentConfigured: true}, svc.Health())

	msg, err := svc.Reset(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, resetMessage, msg)
}

func TestAgentTools(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*AgentTools, *fakeExpenses, *fakeCategories, int64) {
		t.Helper()
		f := newExpenseFixture(t)
		budgets := NewBudgetService(&fakeBudgets{}, f.cats, f.expenses, nil, nil, fixedClock())
		currencies := NewCurrencyService(newFakeCurrencies(), stubRates{rate: dec("1.35")})
		return NewAgentTools(f.svc, budgets, currencies, fixedClock()), f.expenses, f.cats, f.userID
	}

	t.Run("log expense", func(t *testing.T) {
		t.Parallel()
		tools, expenses, _, userID := setup(t)
		out, err := tools.LogExpense(ctx, userID, dec("4.5"), "food", "coffee")
		require.NoError(t, err)
		require.Equal(t, "Logged $4.50 to Food", out)
		require.Len(t, expenses.rows, 1)
		require.True(t, expenses.rows[0].AIParsed)

		_, err = tools.LogExpense(ctx, userID, dec("4.5"), "Spaceships", "")
		require.Error(t, err)
	})

	t.Run("budget status", func(t *testing.T) {
		t.Parallel()
		tools, expenses, cats, userID := setup(t)
		expenses.add(userID, cats.byName("Food"), "50", day(2026, 4, 2))
		expenses.add(userID, cats.byName("Food"), "500", day(2026, 3, 2))

		out, err := tools.BudgetStatus(ctx, userID, "food")
		require.NoError(t, err)
		require.Equal(t, "You have spent $50.00 out of $200.00 on Food. Remaining: $150.00.", out)

		out, err = tools.BudgetStatus(ctx, userID, "Yachts")
		require.NoError(t, err)
		require.Equal(t, "No budget defined for category: Yachts", out)
	})

	t.Run("monthly report", func(t *testing.T) {
		t.Parallel()
		tools, expenses, cats, userID := setup(t)
		expenses.add(userID, cats.byName("Food"), "12.5", day(2026, 4, 2))
		expenses.add(userID, cats.byName("Transport"), "7.5", day(2026, 4, 3))

		out, err := tools.MonthlyReport(ctx, userID)
		require.NoError(t, err)

		var report struct {
			Month            string            `json:"month"`
			CategoryTotals   map[string]string `json:"categoryTotals"`
			GrandTotal       string            `json:"grandTotal"`
			TransactionCount int               `json:"transactionCount"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Equal(t, "2026-04", report.Month)
		require.Equal(t, "20", report.GrandTotal)
		require.Equal(t, "12.5", report.CategoryTotals["Food"])
		require.Equal(t, 2, report.TransactionCount)
	})

	t.Run("convert currency", func(t *testing.T) {
		t.Parallel()
		tools, _, _, userID := setup(t)
		out, err := tools.ConvertCurrency(ctx, userID, dec("10"), "USD", "SGD")
		require.NoError(t, err)
		require.Equal(t, "10.00 USD = 13.50 SGD (rate 1.35)", out)
	})
}
