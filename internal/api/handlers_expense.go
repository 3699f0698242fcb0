package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/chart"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

const defaultTrendDays = 10

type expenseRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Category    string          `json:"category" binding:"max=50"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Description string          `json:"description" binding:"max=500"`
	Date        string          `json:"expenseDate" binding:"omitempty,datetime=2006-01-02"`
}

func (r expenseRequest) input() (service.ExpenseInput, error) {
	in := service.ExpenseInput{
		Amount:      r.Amount,
		Category:    r.Category,
		Currency:    r.Currency,
		Description: r.Description,
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return in, apperr.Field("expenseDate", "must be a date in "+dateLayout+" format")
		}
		in.Date = &d
	}
	return in, nil
}

type parseRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

func (s *server) createExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	e, err := s.Expenses.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Expense created successfully", e)
}

func (s *server) parseExpense(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	e, err := s.Expenses.ParseAndCreate(c.Request.Context(), userID(c), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Expense logged from message", e)
}

func (s *server) dashboard(c *gin.Context) {
	d, err := s.Dashboard.Dashboard(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Dashboard retrieved", d)
}

func (s *server) dashboardRange(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		fail(c, err)
		return
	}
	d, err := s.Dashboard.DashboardRange(c.Request.Context(), userID(c), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Dashboard retrieved", d)
}

func (s *server) currentMonth(c *gin.Context) {
	list, err := s.Expenses.ListCurrentMonth(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, retrievedExpenses(len(list)), list)
}

func (s *server) expensesByCategory(c *gin.Context) {
	list, err := s.Expenses.ListByCategory(c.Request.Context(), userID(c), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, retrievedExpenses(len(list)), list)
}

func (s *server) expensesByRange(c *gin.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := s.Expenses.ListByRange(c.Request.Context(), userID(c), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, retrievedExpenses(len(list)), list)
}

func (s *server) totalCurrentMonth(c *gin.Context) {
	total, err := s.Expenses.TotalCurrentMonth(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"total": total})
}

func (s *server) totalByCategory(c *gin.Context) {
	s.categoryTotal(c, false)
}

func (s *server) totalByCategoryCurrentMonth(c *gin.Context) {
	s.categoryTotal(c, true)
}

func (s *server) categoryTotal(c *gin.Context, currentMonthOnly bool) {
	name := c.Param("name")
	total, err := s.Expenses.TotalByCategory(c.Request.Context(), userID(c), name, currentMonthOnly)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"category": name, "total": total})
}

func (s *server) categoryBreakdown(c *gin.Context) {
	rows, err := s.Expenses.CategoryBreakdown(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", rows)
}

func (s *server) budgetStatus(c *gin.Context) {
	statuses, err := s.Budgets.Status(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", statuses)
}

func (s *server) dashboardChart(c *gin.Context) {
	rows, err := s.Expenses.CategoryBreakdown(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	png, err := chart.CategoryPie(rows, "Spending by category")
	sendPNG(c, png, err)
}

func (s *server) dailyTrendChart(c *gin.Context) {
	days, err := queryInt(c, "days", defaultTrendDays)
	if err != nil {
		fail(c, err)
		return
	}
	points, err := s.Analytics.DailyTrend(c.Request.Context(), userID(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	png, err := chart.DailyLine(points, fmt.Sprintf("Daily spending, last %d days", len(points)))
	sendPNG(c, png, err)
}

func sendPNG(c *gin.Context, png []byte, err error) {
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			fail(c, apperr.NotFound("No spending to chart"))
			return
		}
		fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func retrievedExpenses(n int) string {
	return fmt.Sprintf("Retrieved %d expense(s)", n)
}
