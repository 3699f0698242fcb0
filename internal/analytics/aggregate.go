package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Percentage returns part/whole rounded half-up to 4 places, times 100.
// A zero whole yields 0.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(whole, 4).Mul(hundred)
}

// PercentChange returns the relative change from old to new as a percentage.
// From zero it is 0 when new is also zero and 100 otherwise.
func PercentChange(old, new decimal.Decimal) decimal.Decimal {
	if old.IsZero() {
		if new.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return new.Sub(old).DivRound(old, 4).Mul(hundred)
}

// Total sums expense amounts.
func Total(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// CategorySpend is one row of a category breakdown.
type CategorySpend struct {
	CategoryID int             `json:"categoryId"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ByCategory groups expenses by category, largest total first.
func ByCategory(expenses []models.Expense) []CategorySpend {
	index := make(map[string]int)
	var out []CategorySpend
	for _, e := range expenses {
		name := e.CategoryName()
		i, ok := index[name]
		if !ok {
			row := CategorySpend{CategoryID: e.CategoryID, Name: name, Icon: models.DefaultCategoryIcon, Total: decimal.Zero}
			if e.Category != nil {
				if e.Category.Icon != "" {
					row.Icon = e.Category.Icon
				}
				row.Color = e.Category.Color
			}
			i = len(out)
			index[name] = i
			out = append(out, row)
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}

	grand := Total(expenses)
	for i := range out {
		out[i].Percentage = Percentage(out[i].Total, grand)
	}

	slices.SortStableFunc(out, func(a, b CategorySpend) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// DailyPoint is the spend on one calendar day.
type DailyPoint struct {
	Date    time.Time       `json:"-"`
	Day     string          `json:"date"`
	DayName string          `json:"dayName"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

// PointOn builds the point for the calendar day of t.
func PointOn(t time.Time, total decimal.Decimal, count int) DailyPoint {
	d := Day(t)
	return DailyPoint{Date: d, Day: d.Format(dateLayout), DayName: d.Weekday().String()[:3], Total: total, Count: count}
}

// DailySeries returns one point per day in [from, to], zero-filled.
func DailySeries(expenses []models.Expense, from, to time.Time) []DailyPoint {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}

	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, e := range expenses {
		k := dateKey(e.ExpenseDate)
		totals[k] = totals[k].Add(e.Amount)
		counts[k]++
	}

	var out []DailyPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		k := d.Format(dateLayout)
		total, ok := totals[k]
		if !ok {
			total = decimal.Zero
		}
		out = append(out, PointOn(d, total, counts[k]))
	}
	return out
}

// LastNDays returns the zero-filled series for the n days ending on today.
func LastNDays(expenses []models.Expense, today time.Time, n int) []DailyPoint {
	if n <= 0 {
		return nil
	}
	return DailySeries(expenses, today.AddDate(0, 0, -(n-1)), today)
}

// MonthlyPoint is the spend in one month.
type MonthlyPoint struct {
	Month int             `json:"month"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// MonthlySeries returns the 12 monthly totals of year. Expenses from other years are ignored.
func MonthlySeries(expenses []models.Expense, year int) []MonthlyPoint {
	out := make([]MonthlyPoint, 12)
	for i := range out {
		m := time.Month(i + 1)
		out[i] = MonthlyPoint{Month: i + 1, Name: m.String()[:3], Total: decimal.Zero}
	}
	for _, e := range expenses {
		d := Day(e.ExpenseDate)
		if d.Year() != year {
			continue
		}
		out[d.Month()-1].Total = out[d.Month()-1].Total.Add(e.Amount)
	}
	return out
}

// TopN returns the n largest expenses. Ties go to the most recent.
func TopN(expenses []models.Expense, n int) []models.Expense {
	if n <= 0 {
		return nil
	}
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b models.Expense) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		if c := b.ExpenseDate.Compare(a.ExpenseDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// HighestDay returns the first point with the largest total. When points is empty
// or every total is zero it returns fallback with a zero total.
func HighestDay(points []DailyPoint, fallback time.Time) DailyPoint {
	best := -1
	for i, p := range points {
		if !p.Total.IsPositive() {
			continue
		}
		if best < 0 || p.Total.GreaterThan(points[best].Total) {
			best = i
		}
	}
	if best < 0 {
		return PointOn(fallback, decimal.Zero, 0)
	}
	return points[best]
}
