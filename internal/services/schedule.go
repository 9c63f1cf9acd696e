package services

import (
	"time"

	"moneta/internal/core"
)

// NextExecutionDate computes the next due date for a recurring template.
// Pure function: "now" is passed in, both dates are expected as UTC-midnight
// calendar dates.
//
// With catchUp true (the template was actually acted on), the date advances
// past every fully elapsed occurrence unit between previous and now, plus one
// interval. A template left untouched for N periods lands on the next period
// after now instead of staying perpetually one interval overdue.
//
// With catchUp false (the user skipped an occurrence), the date advances by
// exactly one nominal interval, however far now has drifted.
//
// A zero previous date means the template has no explicit start and the
// schedule begins at now.
func NextExecutionDate(occurrence core.Occurrence, interval int, previous, now time.Time, catchUp bool) time.Time {
	if previous.IsZero() {
		previous = now
	}
	steps := interval
	if catchUp {
		steps += elapsedUnits(occurrence, previous, now)
	}
	switch occurrence {
	case core.Month:
		return previous.AddDate(0, steps, 0)
	case core.Year:
		return previous.AddDate(steps, 0, 0)
	default:
		return previous.AddDate(0, 0, steps)
	}
}

// elapsedUnits counts fully completed occurrence units between the two
// dates, order-insensitive. Partial units do not count: catching up from a
// date 3.5 months back advances 3+interval months, landing on the first
// scheduled date strictly after now.
func elapsedUnits(occurrence core.Occurrence, a, b time.Time) int {
	if b.Before(a) {
		a, b = b, a
	}
	switch occurrence {
	case core.Month:
		months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
		if b.Day() < a.Day() {
			months--
		}
		if months < 0 {
			return 0
		}
		return months
	case core.Year:
		years := b.Year() - a.Year()
		if int(b.Month()) < int(a.Month()) ||
			(b.Month() == a.Month() && b.Day() < a.Day()) {
			years--
		}
		if years < 0 {
			return 0
		}
		return years
	default:
		return int(b.Sub(a).Hours() / 24)
	}
}
