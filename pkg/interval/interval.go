// Package interval implements the pure date-window overlap test the
// availability engine is built on. All windows are half-open [start, end):
// the checkout day is excluded, so a checkout and a new check-in may share
// a date without conflicting. The same-day policy constant exists for
// call-site clarity only; half-open semantics already make it uniform.
package interval

import (
	"time"
)

// SameDayTurnoverAllowed names the policy under which a checkout day may
// also be a check-in day. Under half-open windows this is always the
// effective behavior.
const SameDayTurnoverAllowed = true

// Overlaps reports whether the half-open windows [aStart, aEnd) and
// [bStart, bEnd) share at least one night. It is symmetric in its
// arguments and pure.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether day (date-granular) falls inside the half-open
// window [start, end).
func Contains(start, end, day time.Time) bool {
	return !day.Before(start) && day.Before(end)
}

// NormalizeDate truncates t to midnight UTC. Bookings and reservations are
// date-granular; all comparisons happen on normalized dates.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of nights in [start, end), after
// normalizing both ends. Negative spans count as zero.
func DaysBetween(start, end time.Time) int {
	n := int(NormalizeDate(end).Sub(NormalizeDate(start)) / (24 * time.Hour))
	if n < 0 {
		return 0
	}
	return n
}
