package service

import (
	"cmp"
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

func TestMain(m *testing.M) {
	logger.InitHashSaltForTesting("service-test-salt-0123456789abcdef")
	os.Exit(m.Run())
}

// fixedClock pins "today" to 2026-04-15 10:00 UTC.
var fixedNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[int64]*models.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if strings.EqualFold(r.Username, u.Username) || strings.EqualFold(r.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.Active = true
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.DefaultCurrency == "" {
		u.DefaultCurrency = models.DefaultCurrency
	}
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByUsernameOrEmail(_ context.Context, identifier string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		return strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier)
	})
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.TelegramID != nil && *u.TelegramID == telegramID })
}

func (f *fakeUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, err := f.find(func(u *models.User) bool { return strings.EqualFold(u.Username, username) })
	return err == nil, nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
	return err == nil, nil
}

func (f *fakeUsers) update(id int64, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id int64) error {
	return f.update(id, func(u *models.User) {
		now := fixedNow
		u.LastLogin = &now
	})
}

func (f *fakeUsers) UpdateDefaultCurrency(_ context.Context, id int64, currency string) error {
	return f.update(id, func(u *models.User) { u.DefaultCurrency = currency })
}

func (f *fakeUsers) LinkTelegram(_ context.Context, id, telegramID int64) error {
	f.mu.Lock()
	for _, u := range f.rows {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			u.TelegramID = nil
		}
	}
	f.mu.Unlock()
	return f.update(id, func(u *models.User) { u.TelegramID = &telegramID })
}

type fakeCategories struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.Category
}

// newFakeCategories seeds Food, Transport, Grocery, Bills and Other, plus an
// inactive Legacy category.
func newFakeCategories() *fakeCategories {
	f := &fakeCategories{}
	for _, name := range []string{"Food", "Transport", "Grocery", "Bills", "Other"} {
		_ = f.Create(context.Background(), &models.Category{Name: name, Icon: "🔖", Color: "#000000"})
	}
	legacy := &models.Category{Name: "Legacy", Icon: "🗄"}
	_ = f.Create(context.Background(), legacy)
	_ = f.SetActive(context.Background(), legacy.ID, false)
	return f
}

func (f *fakeCategories) byName(name string) *models.Category {
	c, err := f.GetByName(context.Background(), name)
	if err != nil {
		panic(err)
	}
	return c
}

func (f *fakeCategories) ListActive(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Category
	for _, c := range f.rows {
		if c.Active {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id int) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategories) GetByName(_ context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategories) Create(_ context.Context, cat *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if strings.EqualFold(c.Name, cat.Name) {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	cat.ID = f.nextID
	cat.Active = true
	cp := *cat
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeCategories) Update(_ context.Context, cat *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == cat.ID {
			active := c.Active
			*c = *cat
			c.Active = active
			cat.Active = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCategories) SetActive(_ context.Context, id int, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			c.Active = active
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeCurrencies struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.Currency
}

func newFakeCurrencies() *fakeCurrencies {
	f := &fakeCurrencies{}
	for _, c := range []models.Currency{
		{Code: "USD", Symbol: "$", Name: "US Dollar", Country: "United States"},
		{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar", Country: "Singapore"},
		{Code: "EUR", Symbol: "€", Name: "Euro", Country: "Eurozone"},
	} {
		_ = f.Create(context.Background(), &c)
	}
	return f
}

func (f *fakeCurrencies) List(_ context.Context) ([]models.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Currency, 0, len(f.rows))
	for _, c := range f.rows {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCurrencies) find(match func(*models.Currency) bool) (*models.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCurrencies) GetByID(_ context.Context, id int) (*models.Currency, error) {
	return f.find(func(c *models.Currency) bool { return c.ID == id })
}

func (f *fakeCurrencies) GetByCode(_ context.Context, code string) (*models.Currency, error) {
	return f.find(func(c *models.Currency) bool { return c.Code == code })
}

func (f *fakeCurrencies) Create(_ context.Context, c *models.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeCurrencies) Update(_ context.Context, c *models.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Code == c.Code && r.ID != c.ID {
			return repository.ErrDuplicate
		}
	}
	for _, r := range f.rows {
		if r.ID == c.ID {
			*r = *c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCurrencies) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = slices.Delete(f.rows, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeExpenses struct {
	mu     sync.Mutex
	nextID int
	rows   []models.Expense
}

// add inserts an expense directly, bypassing the service.
func (f *fakeExpenses) add(userID int64, cat *models.Category, amount string, date time.Time) {
	_ = f.Create(context.Background(), &models.Expense{
		UserID:      userID,
		CategoryID:  cat.ID,
		Category:    cat,
		Amount:      dec(amount),
		Currency:    models.DefaultCurrency,
		Description: cat.Name,
		ExpenseDate: date,
	})
}

func (f *fakeExpenses) Create(_ context.Context, e *models.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	e.CreatedAt = fixedNow
	f.rows = append(f.rows, *e)
	return nil
}

// filter returns matching rows newest first.
func (f *fakeExpenses) filter(match func(models.Expense) bool) []models.Expense {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Expense
	for _, e := range f.rows {
		if match(e) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Expense) int {
		if c := b.ExpenseDate.Compare(a.ExpenseDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func within(e models.Expense, from, to time.Time) bool {
	return !e.ExpenseDate.Before(from) && !e.ExpenseDate.After(to)
}

func (f *fakeExpenses) ListByDateRange(_ context.Context, userID int64, from, to time.Time) ([]models.Expense, error) {
	return f.filter(func(e models.Expense) bool { return e.UserID == userID && within(e, from, to) }), nil
}

func (f *fakeExpenses) ListByCategory(_ context.Context, userID int64, categoryID int) ([]models.Expense, error) {
	return f.filter(func(e models.Expense) bool { return e.UserID == userID && e.CategoryID == categoryID }), nil
}

func (f *fakeExpenses) ListRecent(_ context.Context, userID int64, n int) ([]models.Expense, error) {
	out := f.filter(func(e models.Expense) bool { return e.UserID == userID })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func sum(rows []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range rows {
		total = total.Add(e.Amount)
	}
	return total
}

func (f *fakeExpenses) SumByDateRange(ctx context.Context, userID int64, from, to time.Time) (decimal.Decimal, error) {
	rows, _ := f.ListByDateRange(ctx, userID, from, to)
	return sum(rows), nil
}

func (f *fakeExpenses) SumByCategory(_ context.Context, userID int64, categoryID int, from, to *time.Time) (decimal.Decimal, error) {
	return sum(f.filter(func(e models.Expense) bool {
		if e.UserID != userID || e.CategoryID != categoryID {
			return false
		}
		return from == nil || within(e, *from, *to)
	})), nil
}

func (f *fakeExpenses) SumPerCategory(ctx context.Context, userID int64, from, to time.Time) (map[int]decimal.Decimal, error) {
	rows, _ := f.ListByDateRange(ctx, userID, from, to)
	out := make(map[int]decimal.Decimal)
	for _, e := range rows {
		out[e.CategoryID] = out[e.CategoryID].Add(e.Amount)
	}
	return out, nil
}

func (f *fakeExpenses) HighestDay(_ context.Context, userID int64) (time.Time, decimal.Decimal, error) {
	totals := make(map[time.Time]decimal.Decimal)
	for _, e := range f.filter(func(e models.Expense) bool { return e.UserID == userID }) {
		totals[e.ExpenseDate] = totals[e.ExpenseDate].Add(e.Amount)
	}
	if len(totals) == 0 {
		return time.Time{}, decimal.Zero, repository.ErrNotFound
	}
	var best time.Time
	for d, t := range totals {
		if best.IsZero() || t.GreaterThan(totals[best]) || (t.Equal(totals[best]) && d.Before(best)) {
			best = d
		}
	}
	return best, totals[best], nil
}

type fakeBudgets struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.Budget
}

func sameCategory(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeBudgets) Upsert(_ context.Context, b *models.Budget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == b.UserID && sameCategory(r.CategoryID, b.CategoryID) && r.Period == b.Period && r.Active {
			r.Limit = b.Limit
			r.AlertThreshold = b.AlertThreshold
			b.ID, b.Active = r.ID, true
			return nil
		}
	}
	f.nextID++
	b.ID = f.nextID
	b.Active = true
	cp := *b
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeBudgets) ListActive(_ context.Context, userID int64, period *models.BudgetPeriod) ([]models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Budget
	for _, r := range f.rows {
		if r.UserID == userID && r.Active && (period == nil || r.Period == *period) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeBudgets) get(match func(*models.Budget) bool) (*models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBudgets) GetActiveForCategory(_ context.Context, userID int64, categoryID int, period models.BudgetPeriod) (*models.Budget, error) {
	return f.get(func(b *models.Budget) bool {
		return b.UserID == userID && b.Active && b.Period == period && b.CategoryID != nil && *b.CategoryID == categoryID
	})
}

func (f *fakeBudgets) GetActiveTotal(_ context.Context, userID int64, period models.BudgetPeriod) (*models.Budget, error) {
	return f.get(func(b *models.Budget) bool {
		return b.UserID == userID && b.Active && b.Period == period && b.CategoryID == nil
	})
}

func (f *fakeBudgets) GetByID(_ context.Context, id int) (*models.Budget, error) {
	return f.get(func(b *models.Budget) bool { return b.ID == id })
}

func (f *fakeBudgets) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = slices.Delete(f.rows, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeSessions struct {
	mu      sync.Mutex
	rows    map[int64]*models.ChatSession
	upserts int
	touches int
	err     error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: make(map[int64]*models.ChatSession)}
}

func (f *fakeSessions) GetActiveByUser(_ context.Context, userID int64) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.rows[userID]
	if !ok || !s.Active {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Upsert(_ context.Context, s *models.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	s.Active = true
	s.LastActivity = fixedNow
	cp := *s
	f.rows[s.UserID] = &cp
	return nil
}

func (f *fakeSessions) Deactivate(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[userID]
	if !ok || !s.Active {
		return false, nil
	}
	s.Active = false
	return true, nil
}

func (f *fakeSessions) Touch(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	if s, ok := f.rows[userID]; ok {
		s.LastActivity = fixedNow
	}
	return nil
}

func (f *fakeSessions) DeactivateIdle(_ context.Context, before time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []int64
	for id, s := range f.rows {
		if s.Active && s.LastActivity.Before(before) {
			s.Active = false
			users = append(users, id)
		}
	}
	return users, nil
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []models.ChatMessage
}

func (f *fakeHistory) Create(_ context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = len(f.rows) + 1
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeHistory) ListRecent(_ context.Context, userID int64, n int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

type fakeLogs struct {
	mu   sync.Mutex
	rows []models.ParsingLog
}

func (f *fakeLogs) Create(_ context.Context, l *models.ParsingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *l)
	return nil
}

func (f *fakeLogs) all() []models.ParsingLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rows)
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]*models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{rows: make(map[string]*models.RefreshToken)}
}

func (f *fakeTokens) Create(_ context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows[t.TokenHash] = &cp
	return nil
}

func (f *fakeTokens) GetValid(_ context.Context, hash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[hash]
	if !ok || t.Revoked || !t.ExpiresAt.After(fixedNow) {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Revoke(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[hash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeTokens) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, t := range f.rows {
		if t.ExpiresAt.Before(before) {
			delete(f.rows, h)
			n++
		}
	}
	return n, nil
}
