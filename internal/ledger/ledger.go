// Package ledger aggregates per-account daily records over the current week
// and formats values for display. The ledger itself may hold records from
// older weeks; those never leak into weekly sums.
package ledger

import (
	"math"
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// DateKeyLayout is the ledger key format (local calendar date).
const DateKeyLayout = "2006-01-02"

// DateKey returns the ledger key for a point in time.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Week is the Monday-through-Sunday window containing some reference date.
type Week struct {
	Days [7]string // date keys, Monday first
}

// WeekWindow computes the week containing now, using ISO weekdays
// (Sunday counts as day 7, so Monday is always the anchor).
func WeekWindow(now time.Time) Week {
	wd := int(now.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := now.AddDate(0, 0, -(wd - 1))

	var w Week
	for i := range w.Days {
		w.Days[i] = DateKey(monday.AddDate(0, 0, i))
	}
	return w
}

// Contains reports whether a date key falls inside the window.
func (w Week) Contains(key string) bool {
	for _, d := range w.Days {
		if d == key {
			return true
		}
	}
	return false
}

// Value returns the formatted value of one field on one day, or "-" when the
// day has no record.
func Value(l domain.WeeklyLedger, dateKey, field, unit string) string {
	rec, ok := l[dateKey]
	if !ok {
		return "-"
	}
	v, ok := rec.Field(field)
	if !ok {
		return "-"
	}
	return Format(v, unit)
}

// Sum totals a field across the date keys inside the week containing now.
// Records from other weeks present in the ledger are excluded. The second
// return is false when no day in the window carries the field.
func Sum(l domain.WeeklyLedger, field string, now time.Time) (float64, bool) {
	w := WeekWindow(now)

	var sum float64
	has := false
	for key, rec := range l {
		if !w.Contains(key) {
			continue
		}
		if v, ok := rec.Field(field); ok {
			sum += v
			has = true
		}
	}
	return sum, has
}

// SumDisplay formats a weekly sum, or "-" when the window holds no data.
func SumDisplay(l domain.WeeklyLedger, field string, now time.Time) string {
	sum, ok := Sum(l, field, now)
	if !ok {
		return "-"
	}
	return Format(sum, "")
}

// HourlyTotal computes the weekly hourly rate for a net field as
// floor(sum(net) / sum(duration)). Averaging the daily rates would weight a
// one-hour day the same as a ten-hour day; dividing the totals weights by
// hours actually contributed.
func HourlyTotal(l domain.WeeklyLedger, netField string, now time.Time) (float64, bool) {
	net, ok := Sum(l, netField, now)
	if !ok {
		return 0, false
	}
	dur, _ := Sum(l, "duration", now)
	if dur <= 0 {
		return 0, true
	}
	return math.Floor(net / dur), true
}

// HourlyTotalDisplay formats a weekly hourly total, or "-" without data.
func HourlyTotalDisplay(l domain.WeeklyLedger, netField string, now time.Time) string {
	v, ok := HourlyTotal(l, netField, now)
	if !ok {
		return "-"
	}
	return Format(v, "")
}
