package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

const dateLayout = "2006-01-02"

func pathInt(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0, apperr.BadRequest("Invalid %s: %q", name, c.Param(name))
	}
	return v, nil
}

func pathInt64(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.BadRequest("Invalid %s: %q", name, c.Param(name))
	}
	return v, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Field(name, "must be an integer")
	}
	return v, nil
}

// dateRange reads from/to, falling back to startDate/endDate.
func dateRange(c *gin.Context) (time.Time, time.Time, error) {
	from, err := queryDate(c, "from", "startDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryDate(c, "to", "endDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func queryDate(c *gin.Context, name, alias string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		raw = c.Query(alias)
	}
	if raw == "" {
		return time.Time{}, apperr.Field(name, "is required")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Field(name, "must be a date in "+dateLayout+" format")
	}
	return t, nil
}

// queryPeriod parses ?period=, defaulting to MONTHLY.
func queryPeriod(c *gin.Context) (models.BudgetPeriod, error) {
	p, err := models.ParseBudgetPeriod(c.Query("period"))
	if err != nil {
		return "", apperr.Field("period", "must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	}
	return p, nil
}
