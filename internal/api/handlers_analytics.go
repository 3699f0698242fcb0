package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *server) dailyTrend(c *gin.Context) {
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
	ok(c, http.StatusOK, "", points)
}

// monthlySpend treats a missing year as the current one.
func (s *server) monthlySpend(c *gin.Context) {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		fail(c, err)
		return
	}
	points, err := s.Analytics.MonthlySpend(c.Request.Context(), userID(c), year)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", points)
}

func (s *server) summary(c *gin.Context) {
	sum, err := s.Analytics.Summary(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", sum)
}

func (s *server) forecast(c *gin.Context) {
	f, err := s.Analytics.Forecast(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", f)
}
