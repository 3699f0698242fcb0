// Package api serves the REST+JSON interface over gin.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/exchange"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

// AuthAPI is implemented by service.AuthService.
type AuthAPI interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	Refresh(ctx context.Context, raw string) (*service.AuthResult, error)
	Logout(ctx context.Context, raw string) error
	LogoutAll(ctx context.Context, userID int64) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// UserAPI is implemented by service.UserService.
type UserAPI interface {
	UpdateCurrency(ctx context.Context, actor service.Actor, userID int64, code string) (*models.User, error)
}

// ExpenseAPI is implemented by service.ExpenseService.
type ExpenseAPI interface {
	Create(ctx context.Context, userID int64, in service.ExpenseInput) (*models.Expense, error)
	ParseAndCreate(ctx context.Context, userID int64, message string) (*models.Expense, error)
	ListByCategory(ctx context.Context, userID int64, name string) ([]models.Expense, error)
	ListByRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Expense, error)
	ListCurrentMonth(ctx context.Context, userID int64) ([]models.Expense, error)
	TotalCurrentMonth(ctx context.Context, userID int64) (decimal.Decimal, error)
	TotalByCategory(ctx context.Context, userID int64, name string, currentMonthOnly bool) (decimal.Decimal, error)
	CategoryBreakdown(ctx context.Context, userID int64) ([]analytics.CategorySpend, error)
}

// DashboardAPI is implemented by service.DashboardService.
type DashboardAPI interface {
	Dashboard(ctx context.Context, userID int64) (*service.Dashboard, error)
	DashboardRange(ctx context.Context, userID int64, from, to time.Time) (*service.Dashboard, error)
}

// BudgetAPI is implemented by service.BudgetService.
type BudgetAPI interface {
	SetCategoryBudget(ctx context.Context, userID int64, in service.BudgetInput) (*service.BudgetView, error)
	SetTotalBudget(ctx context.Context, userID int64, in service.BudgetInput) (*service.BudgetView, error)
	SetBatch(ctx context.Context, userID int64, inputs []service.BudgetInput) ([]service.BudgetView, error)
	List(ctx context.Context, userID int64, period *models.BudgetPeriod) ([]service.BudgetView, error)
	GetForCategory(ctx context.Context, userID int64, name string, period models.BudgetPeriod) (*service.BudgetView, error)
	GetTotal(ctx context.Context, userID int64, period models.BudgetPeriod) (*service.BudgetView, error)
	Delete(ctx context.Context, userID int64, id int) error
	LimitsMap(ctx context.Context, userID int64) (map[string]decimal.Decimal, error)
	Status(ctx context.Context, userID int64) ([]analytics.BudgetStatus, error)
}

// AnalyticsAPI is implemented by service.AnalyticsService.
type AnalyticsAPI interface {
	DailyTrend(ctx context.Context, userID int64, days int) ([]analytics.DailyPoint, error)
	MonthlySpend(ctx context.Context, userID int64, year int) ([]analytics.MonthlyPoint, error)
	Summary(ctx context.Context, userID int64) (*analytics.Summary, error)
	Forecast(ctx context.Context, userID int64) (*analytics.Forecast, error)
}

// CategoryAPI is implemented by service.CategoryService.
type CategoryAPI interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id int) (*models.Category, error)
	Create(ctx context.Context, req service.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id int, req service.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id int) error
}

// CurrencyAPI is implemented by service.CurrencyService.
type CurrencyAPI interface {
	List(ctx context.Context) ([]models.Currency, error)
	Get(ctx context.Context, id int) (*models.Currency, error)
	Create(ctx context.Context, req service.CurrencyRequest) (*models.Currency, error)
	Update(ctx context.Context, id int, req service.CurrencyRequest) (*models.Currency, error)
	Delete(ctx context.Context, id int) error
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*exchange.ConversionResult, error)
}

// ChatAPI is implemented by service.ChatService.
type ChatAPI interface {
	Send(ctx context.Context, userID int64, message string) (*service.ChatReply, error)
	History(ctx context.Context, userID int64, limit int) ([]models.ChatMessage, error)
	Reset(ctx context.Context, userID int64) (string, error)
	Health() service.ChatHealth
}

// Deps holds everything the router serves.
type Deps struct {
	Tokens     TokenVerifier
	Auth       AuthAPI
	Users      UserAPI
	Expenses   ExpenseAPI
	Dashboard  DashboardAPI
	Budgets    BudgetAPI
	Analytics  AnalyticsAPI
	Categories CategoryAPI
	Currencies CurrencyAPI
	Chat       ChatAPI
}

type server struct {
	Deps
}

var registerTagName sync.Once

// NewRouter builds the gin engine with every route mounted.
func NewRouter(deps Deps) *gin.Engine {
	registerTagName.Do(func() {
		if v, isValidator := binding.Validator.Engine().(*validator.Validate); isValidator {
			v.RegisterTagNameFunc(jsonTagName)
		}
	})

	s := &server{Deps: deps}

	r := gin.New()
	r.Use(requestLogger(), recovery())
	r.NoRoute(func(c *gin.Context) {
		fail(c, apperr.NotFound("No route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	r.GET("/healthz", func(c *gin.Context) {
		ok(c, http.StatusOK, "OK", gin.H{"status": "UP"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)

	api.GET("/chat/health", s.chatHealth)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Tokens))

	protected.POST("/auth/logout", s.logout)
	protected.POST("/auth/logout-all", s.logoutAll)
	protected.GET("/auth/me", s.me)

	users := protected.Group("/users")
	users.PUT("/:id/currency", s.setUserCurrency)
	users.GET("/:id/budgets", s.userBudgets)
	users.GET("/:id/analytics/summary", s.userSummary)

	expenses := protected.Group("/expenses")
	expenses.POST("", s.createExpense)
	expenses.POST("/parse", s.parseExpense)
	expenses.GET("/dashboard", s.dashboard)
	expenses.GET("/dashboard/range", s.dashboardRange)
	expenses.GET("/dashboard/chart", s.dashboardChart)
	expenses.GET("/current-month", s.currentMonth)
	expenses.GET("/category/:name", s.expensesByCategory)
	expenses.GET("/range", s.expensesByRange)
	expenses.GET("/total/current-month", s.totalCurrentMonth)
	expenses.GET("/total/category/:name", s.totalByCategory)
	expenses.GET("/total/category/:name/current-month", s.totalByCategoryCurrentMonth)
	expenses.GET("/breakdown/category", s.categoryBreakdown)
	expenses.GET("/trends/daily", s.dailyTrend)
	expenses.GET("/trends/daily/chart", s.dailyTrendChart)
	expenses.GET("/budget/status", s.budgetStatus)

	budgets := protected.Group("/budgets")
	budgets.POST("/category", s.setCategoryBudget)
	budgets.POST("/total", s.setTotalBudget)
	budgets.POST("/batch", s.setBudgetBatch)
	budgets.GET("", s.listBudgets)
	budgets.GET("/category/:name", s.categoryBudget)
	budgets.GET("/total", s.totalBudget)
	budgets.GET("/limits", s.budgetLimits)
	budgets.DELETE("/:id", s.deleteBudget)

	an := protected.Group("/analytics")
	an.GET("/daily-trend", s.dailyTrend)
	an.GET("/monthly-spend", s.monthlySpend)
	an.GET("/summary", s.summary)
	an.GET("/forecast", s.forecast)

	categories := protected.Group("/categories")
	categories.GET("", s.listCategories)
	categories.GET("/:id", s.getCategory)
	categories.POST("", s.createCategory)
	categories.PUT("/:id", s.updateCategory)
	categories.DELETE("/:id", s.deleteCategory)

	currencies := protected.Group("/currencies")
	currencies.GET("", s.listCurrencies)
	currencies.GET("/convert", s.convertCurrency)
	currencies.GET("/:id", s.getCurrency)
	currencies.POST("", s.createCurrency)
	currencies.PUT("/:id", s.updateCurrency)
	currencies.DELETE("/:id", s.deleteCurrency)

	chat := protected.Group("/chat")
	chat.POST("/message", s.chatMessage)
	chat.POST("/reset", s.chatReset)
	chat.GET("/history", s.chatHistory)

	return r
}
