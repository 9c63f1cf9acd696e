// Package clock resolves a user's IANA timezone to calendar dates.
//
// All dates it produces are UTC-midnight time.Time values: the calendar day
// the user sees in their zone, with no wall-clock component left to drift.
package clock

import (
	"fmt"
	"time"
)

// Resolver turns IANA zone names into "today" as a UTC-normalized date. The
// now source is injectable so date arithmetic stays testable.
type Resolver struct {
	now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverAt returns a Resolver whose notion of the current instant comes
// from the given function.
func NewResolverAt(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Today returns the current calendar date in the given IANA zone, normalized
// to UTC midnight. An unknown zone is an error, never a silent UTC fallback.
func (r *Resolver) Today(zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve timezone %q: %w", zone, err)
	}
	y, m, d := r.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// Now returns the resolver's current instant.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// MonthStart truncates a date to the first day of its month, UTC midnight.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DateOnly normalizes any instant to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
