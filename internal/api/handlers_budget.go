package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

type budgetBatchRequest struct {
	Budgets []service.BudgetInput `json:"budgets" binding:"required,dive"`
}

func (s *server) setCategoryBudget(c *gin.Context) {
	var req service.BudgetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	v, err := s.Budgets.SetCategoryBudget(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Budget set successfully for "+v.Category, v)
}

func (s *server) setTotalBudget(c *gin.Context) {
	var req service.BudgetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	v, err := s.Budgets.SetTotalBudget(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Total budget set successfully", v)
}

func (s *server) setBudgetBatch(c *gin.Context) {
	var req budgetBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	views, err := s.Budgets.SetBatch(c.Request.Context(), userID(c), req.Budgets)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("Set %d budget(s)", len(views)), views)
}

// listBudgets returns every budget, or only one period's when ?period= is given.
func (s *server) listBudgets(c *gin.Context) {
	var period *models.BudgetPeriod
	if c.Query("period") != "" {
		p, err := queryPeriod(c)
		if err != nil {
			fail(c, err)
			return
		}
		period = &p
	}
	views, err := s.Budgets.List(c.Request.Context(), userID(c), period)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, retrievedBudgets(len(views)), views)
}

func (s *server) categoryBudget(c *gin.Context) {
	period, err := queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := s.Budgets.GetForCategory(c.Request.Context(), userID(c), c.Param("name"), period)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", v)
}

func (s *server) totalBudget(c *gin.Context) {
	period, err := queryPeriod(c)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := s.Budgets.GetTotal(c.Request.Context(), userID(c), period)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", v)
}

func (s *server) budgetLimits(c *gin.Context) {
	limits, err := s.Budgets.LimitsMap(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", limits)
}

func (s *server) deleteBudget(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.Budgets.Delete(c.Request.Context(), userID(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Budget deleted successfully", nil)
}

func retrievedBudgets(n int) string {
	return fmt.Sprintf("Retrieved %d budget(s)", n)
}
