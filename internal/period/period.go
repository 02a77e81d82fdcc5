// Package period derives a budget's date window from its recurrence period.
// Windows are inclusive: the start is midnight of the first day and the end
// is the last nanosecond of the last day, both in the reference instant's
// location. The window is computed once when a budget is created and stored;
// it does not slide as time passes.
package period

import (
	"errors"
	"time"

	"fiscus/internal/models"
)

// ErrInvalidPeriod is returned for an unknown period value. Periods are
// validated when a budget is created, so hitting this is a programmer error.
var ErrInvalidPeriod = errors.New("invalid budget period")

// Valid reports whether p is a known budget period.
func Valid(p models.BudgetPeriod) bool {
	switch p {
	case models.BudgetPeriodDaily, models.BudgetPeriodWeekly, models.BudgetPeriodMonthly,
		models.BudgetPeriodQuarterly, models.BudgetPeriodYearly:
		return true
	}
	return false
}

// Window returns the inclusive [start, end] window containing ref for the
// given period. Weeks start on Sunday. Month and quarter ends are computed
// via day zero of the following month, which is safe across 28/29/30/31-day
// months.
func Window(p models.BudgetPeriod, ref time.Time) (time.Time, time.Time, error) {
	y, m, d := ref.Date()
	loc := ref.Location()

	switch p {
	case models.BudgetPeriodDaily:
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, endOfDay(start), nil

	case models.BudgetPeriodWeekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, endOfDay(start.AddDate(0, 0, 6)), nil

	case models.BudgetPeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, endOfDay(time.Date(y, m+1, 0, 0, 0, 0, 0, loc)), nil

	case models.BudgetPeriodQuarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, qm, 1, 0, 0, 0, 0, loc)
		return start, endOfDay(time.Date(y, qm+3, 0, 0, 0, 0, 0, loc)), nil

	case models.BudgetPeriodYearly:
		start := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return start, endOfDay(time.Date(y, 12, 31, 0, 0, 0, 0, loc)), nil
	}

	return time.Time{}, time.Time{}, ErrInvalidPeriod
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
