// Package analytics computes spending aggregates, forecasts and budget status from
// expense rows. It performs no I/O; callers load rows and pass them in.
package analytics

import "time"

const dateLayout = "2006-01-02"

// Day truncates t to its calendar day in t's own location and returns it as UTC midnight.
// All dates handled by this package are in that form, matching how DATE columns scan.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// MonthRange returns the first and last day of the month containing day.
func MonthRange(day time.Time) (time.Time, time.Time) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// YearRange returns Jan 1 and Dec 31 of day's year.
func YearRange(day time.Time) (time.Time, time.Time) {
	return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the length of day's month.
func DaysInMonth(day time.Time) int {
	_, last := MonthRange(day)
	return last.Day()
}

// DaysInYear returns 365 or 366.
func DaysInYear(day time.Time) int {
	_, last := YearRange(day)
	return last.YearDay()
}

func dateKey(t time.Time) string {
	return Day(t).Format(dateLayout)
}
