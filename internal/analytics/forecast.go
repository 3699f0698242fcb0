package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// PredictionWindow is how many recent expenses PredictNext looks at.
const PredictionWindow = 50

// SummaryWindowDays is the trailing window used by Summarize.
const SummaryWindowDays = 10

// Project extrapolates spend linearly: spent/daysElapsed (2 places, half-up) times daysInPeriod.
func Project(spent decimal.Decimal, daysElapsed, daysInPeriod int) decimal.Decimal {
	if daysElapsed <= 0 {
		return spent
	}
	return spent.DivRound(decimal.NewFromInt(int64(daysElapsed)), 2).Mul(decimal.NewFromInt(int64(daysInPeriod)))
}

// Prediction is the expected next expense.
type Prediction struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"estimatedAmount"`
	Confidence string          `json:"confidence"`
	SampleSize int             `json:"sampleSize"`
}

// PredictNext picks the most frequent category among recent, which must be ordered
// newest first. Frequency ties go to the category seen most recently. Only the first
// PredictionWindow rows are considered. Returns nil for no rows.
func PredictNext(recent []models.Expense) *Prediction {
	if len(recent) == 0 {
		return nil
	}
	if len(recent) > PredictionWindow {
		recent = recent[:PredictionWindow]
	}

	type tally struct {
		count int
		sum   decimal.Decimal
		first int
	}
	tallies := make(map[string]*tally)
	for i, e := range recent {
		name := e.CategoryName()
		t, ok := tallies[name]
		if !ok {
			t = &tally{first: i, sum: decimal.Zero}
			tallies[name] = t
		}
		t.count++
		t.sum = t.sum.Add(e.Amount)
	}

	var top string
	var best *tally
	for name, t := range tallies {
		if best == nil || t.count > best.count || (t.count == best.count && t.first < best.first) {
			top, best = name, t
		}
	}

	return &Prediction{
		Category:   top,
		Amount:     best.sum.DivRound(decimal.NewFromInt(int64(best.count)), 2),
		Confidence: confidenceLabel(best.count),
		SampleSize: len(recent),
	}
}

func confidenceLabel(count int) string {
	switch {
	case count >= 5:
		return "High"
	case count >= 2:
		return "Medium"
	default:
		return "Low"
	}
}

// Forecast is the month-end and year-end outlook.
type Forecast struct {
	MonthEnd   decimal.Decimal `json:"predictedMonthEndSpend"`
	YearEnd    decimal.Decimal `json:"predictedYearEndSpend"`
	NextLikely *Prediction     `json:"nextLikelySpend"`
	Summary    string          `json:"analysis"`
}

// BuildForecast projects month-to-date and year-to-date spend to the end of their
// periods as of today, and predicts the next expense from recent.
func BuildForecast(monthSpent, yearSpent decimal.Decimal, today time.Time, recent []models.Expense) Forecast {
	today = Day(today)
	f := Forecast{
		MonthEnd:   Project(monthSpent, today.Day(), DaysInMonth(today)),
		YearEnd:    Project(yearSpent, today.YearDay(), DaysInYear(today)),
		NextLikely: PredictNext(recent),
	}
	f.Summary = ForecastSummary(f.MonthEnd, f.YearEnd, f.NextLikely)
	return f
}

// ForecastSummary renders the forecast as one sentence.
func ForecastSummary(monthEnd, yearEnd decimal.Decimal, next *Prediction) string {
	category := "Unknown"
	if next != nil {
		category = next.Category
	}
	return fmt.Sprintf(
		"Based on your spending habits, you are on track to spend $%s this month and $%s this year. Your most frequent expense category is %s.",
		monthEnd.StringFixed(2), yearEnd.StringFixed(2), category)
}

// Summary condenses recent activity.
type Summary struct {
	WindowDays        int             `json:"windowDays"`
	WindowTotal       decimal.Decimal `json:"totalSpentLast10Days"`
	DailyAverage      decimal.Decimal `json:"dailyAverage"`
	MonthToDate       decimal.Decimal `json:"monthToDate"`
	ProjectedMonthly  decimal.Decimal `json:"projectedMonthlySpend"`
	HighestDailySpend DailyPoint      `json:"highestDailySpend"`
}

// Summarize builds a Summary from a trailing daily window, the month-to-date total
// and the highest day found by the caller.
func Summarize(window []DailyPoint, monthToDate decimal.Decimal, today time.Time, highest DailyPoint) Summary {
	today = Day(today)
	total := decimal.Zero
	for _, p := range window {
		total = total.Add(p.Total)
	}
	avg := decimal.Zero
	if len(window) > 0 {
		avg = total.DivRound(decimal.NewFromInt(int64(len(window))), 2)
	}
	return Summary{
		WindowDays:        len(window),
		WindowTotal:       total,
		DailyAverage:      avg,
		MonthToDate:       monthToDate,
		ProjectedMonthly:  Project(monthToDate, today.Day(), DaysInMonth(today)),
		HighestDailySpend: highest,
	}
}
