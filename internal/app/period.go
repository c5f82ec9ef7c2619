package app

import (
	"fmt"
	"time"

	"daily-trivia-service/internal/domain"
)

// allTimePeriodKey is the constant bucket for the never-rolling board.
const allTimePeriodKey = "all"

// periodKey computes the calendar bucket for at in loc. Daily keys are
// calendar dates, weekly keys use ISO week numbering, monthly keys are
// year-month. The zone matters: a tenant's "daily" board rolls on the
// tenant's midnight, not the process's.
func periodKey(periodType domain.PeriodType, at time.Time, loc *time.Location) string {
	local := at.In(loc)
	switch periodType {
	case domain.PeriodDaily:
		return local.Format(domain.DayKeyFormat)
	case domain.PeriodWeekly:
		year, week := local.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case domain.PeriodMonthly:
		return local.Format("2006-01")
	default:
		return allTimePeriodKey
	}
}
