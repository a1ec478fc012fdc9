// Package dates provides pure date arithmetic for accounts-receivable
// management: overdue-day counting, aging buckets, business-day math, and
// calendar decompositions. Every function is deterministic given an explicit
// as-of instant and total for any valid time.Time input; nothing in this
// package reads the wall clock.
package dates

import "time"

// day is the canonical length used for whole-day differences.
const day = 24 * time.Hour

// DaysBetween returns the number of whole days from start to end
// (floor of the difference). Negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		// time.Duration division truncates toward zero; floor instead so a
		// partial negative day still counts as -1.
		if d%day != 0 {
			return int(d/day) - 1
		}
	}
	return int(d / day)
}

// DaysOverdue returns how many whole days past due an invoice is at asOf.
// Returns 0 when the due date has not passed.
func DaysOverdue(due, asOf time.Time) int {
	d := DaysBetween(due, asOf)
	if d < 0 {
		return 0
	}
	return d
}

// DaysUntilDue returns whole days from asOf until due. Negative when the
// invoice is already overdue.
func DaysUntilDue(due, asOf time.Time) int {
	return DaysBetween(asOf, due)
}

// Bucket is an ordered aging category for overdue receivables.
type Bucket string

// Aging buckets, ordered from least to most overdue. Boundaries are
// inclusive on the upper end and contiguous: current(≤0), 1-15, 16-30,
// 31-60, 61-90, 90+.
const (
	BucketCurrent Bucket = "current"
	Bucket1To15   Bucket = "1-15"
	Bucket16To30  Bucket = "16-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	Bucket90Plus  Bucket = "90+"
)

// AllBuckets returns the canonical ordered list of aging buckets.
func AllBuckets() []Bucket {
	return []Bucket{BucketCurrent, Bucket1To15, Bucket16To30, Bucket31To60, Bucket61To90, Bucket90Plus}
}

// AgingBucket categorizes a days-overdue count into its aging bucket.
func AgingBucket(daysOverdue int) Bucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 15:
		return Bucket1To15
	case daysOverdue <= 30:
		return Bucket16To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BusinessDaysBetween counts weekdays in [start, end] inclusive.
// Returns 0 when start is after end. Holidays are not considered; callers
// that track a holiday set should subtract separately.
func BusinessDaysBetween(start, end time.Time) int {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if start.After(end) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			count++
		}
	}
	return count
}

// NextBusinessDay advances t past weekends and the supplied holiday set,
// re-checking weekend status after every holiday shift. When t is already a
// business day it is returned unchanged. Holiday membership is keyed by
// calendar date (year, month, day) in t's location.
func NextBusinessDay(t time.Time, holidays map[time.Time]struct{}) time.Time {
	for {
		for IsWeekend(t) {
			t = t.AddDate(0, 0, 1)
		}
		if _, ok := holidays[truncateToDate(t)]; !ok {
			return t
		}
		t = t.AddDate(0, 0, 1)
	}
}

// Quarter returns the calendar quarter (1-4) of t.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// WeekBounds returns the Monday and Sunday of the week containing t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	t = truncateToDate(t)
	// time.Weekday has Sunday == 0; shift so Monday == 0.
	offset := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
