package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/service"
)

func (s *server) listCategories(c *gin.Context) {
	list, err := s.Categories.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", list)
}

func (s *server) getCategory(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cat, err := s.Categories.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", cat)
}

func (s *server) createCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	cat, err := s.Categories.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Category created successfully", cat)
}

func (s *server) updateCategory(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	cat, err := s.Categories.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Category updated successfully", cat)
}

func (s *server) deleteCategory(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.Categories.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Category deleted successfully", nil)
}

func (s *server) listCurrencies(c *gin.Context) {
	list, err := s.Currencies.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", list)
}

func (s *server) getCurrency(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cur, err := s.Currencies.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", cur)
}

func (s *server) createCurrency(c *gin.Context) {
	var req service.CurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	cur, err := s.Currencies.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Currency created successfully", cur)
}

func (s *server) updateCurrency(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req service.CurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	cur, err := s.Currencies.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Currency updated successfully", cur)
}

func (s *server) deleteCurrency(c *gin.Context) {
	id, err := pathInt(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.Currencies.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Currency deleted successfully", nil)
}

func (s *server) convertCurrency(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		fail(c, apperr.Field("amount", "must be a number"))
		return
	}
	res, err := s.Currencies.Convert(c.Request.Context(), amount, c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", res)
}
