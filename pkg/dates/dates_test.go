package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestAgingBucketBoundaries(t *testing.T) {
	cases := []struct {
		daysOverdue int
		want        Bucket
	}{
		{-5, BucketCurrent},
		{0, BucketCurrent},
		{1, Bucket1To15},
		{15, Bucket1To15},
		{16, Bucket16To30},
		{30, Bucket16To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, Bucket90Plus},
		{400, Bucket90Plus},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AgingBucket(tc.daysOverdue), "days overdue %d", tc.daysOverdue)
	}
}

func TestAllBucketsOrdered(t *testing.T) {
	want := []Bucket{BucketCurrent, Bucket1To15, Bucket16To30, Bucket31To60, Bucket61To90, Bucket90Plus}
	assert.Equal(t, want, AllBuckets())
}

func TestDaysBetween(t *testing.T) {
	start := d(2025, 6, 2)
	assert.Equal(t, 0, DaysBetween(start, start))
	assert.Equal(t, 10, DaysBetween(start, d(2025, 6, 12)))
	assert.Equal(t, -1, DaysBetween(start, d(2025, 6, 1)))
	// Partial days floor: an hour short of a full day is still day 0
	// forward but day -1 backward.
	assert.Equal(t, 0, DaysBetween(start, start.Add(23*time.Hour)))
	assert.Equal(t, -1, DaysBetween(start, start.Add(-time.Hour)))
}

func TestDaysOverdueClipsAtZero(t *testing.T) {
	asOf := d(2025, 6, 2)
	assert.Equal(t, 0, DaysOverdue(asOf.AddDate(0, 0, 14), asOf), "not yet due")
	assert.Equal(t, 0, DaysOverdue(asOf, asOf), "due today")
	assert.Equal(t, 9, DaysOverdue(asOf.AddDate(0, 0, -9), asOf))
}

func TestDaysUntilDueGoesNegative(t *testing.T) {
	asOf := d(2025, 6, 2)
	assert.Equal(t, 14, DaysUntilDue(asOf.AddDate(0, 0, 14), asOf))
	assert.Equal(t, -9, DaysUntilDue(asOf.AddDate(0, 0, -9), asOf))
}

func TestBusinessDaysBetween(t *testing.T) {
	mon := d(2025, 6, 2)
	fri := d(2025, 6, 6)
	sat := d(2025, 6, 7)
	sun := d(2025, 6, 8)

	assert.Equal(t, 5, BusinessDaysBetween(mon, fri), "full work week, endpoints inclusive")
	assert.Equal(t, 1, BusinessDaysBetween(mon, mon), "single weekday")
	assert.Equal(t, 0, BusinessDaysBetween(sat, sun), "weekend only")
	assert.Equal(t, 2, BusinessDaysBetween(fri, d(2025, 6, 9)), "friday through monday")
	assert.Equal(t, 0, BusinessDaysBetween(fri, mon), "start after end")
}

func TestIsWeekend(t *testing.T) {
	assert.False(t, IsWeekend(d(2025, 6, 6))) // Friday
	assert.True(t, IsWeekend(d(2025, 6, 7)))  // Saturday
	assert.True(t, IsWeekend(d(2025, 6, 8)))  // Sunday
	assert.False(t, IsWeekend(d(2025, 6, 9))) // Monday
}

func TestNextBusinessDay(t *testing.T) {
	mon := d(2025, 6, 2)
	sat := d(2025, 6, 7)

	assert.Equal(t, mon, NextBusinessDay(mon, nil), "business day returned unchanged")
	assert.Equal(t, d(2025, 6, 9), NextBusinessDay(sat, nil), "weekend advances to monday")

	holidays := map[time.Time]struct{}{mon: {}}
	assert.Equal(t, d(2025, 6, 3), NextBusinessDay(mon, holidays), "holiday advances one day")

	// Friday holiday: the shift lands on Saturday, so the weekend check
	// must run again and land on Monday.
	fri := d(2025, 6, 6)
	holidays = map[time.Time]struct{}{fri: {}}
	assert.Equal(t, d(2025, 6, 9), NextBusinessDay(fri, holidays))

	// Consecutive Monday+Tuesday holidays.
	holidays = map[time.Time]struct{}{mon: {}, d(2025, 6, 3): {}}
	assert.Equal(t, d(2025, 6, 4), NextBusinessDay(sat, holidays))
}

func TestQuarter(t *testing.T) {
	cases := map[time.Month]int{
		time.January: 1, time.March: 1,
		time.April: 2, time.June: 2,
		time.July: 3, time.September: 3,
		time.October: 4, time.December: 4,
	}
	for m, q := range cases {
		assert.Equal(t, q, Quarter(d(2025, m, 15)))
	}
}

func TestWeekBounds(t *testing.T) {
	// Wednesday 2025-06-04 sits in the week Mon 2025-06-02 .. Sun 2025-06-08.
	start, end := WeekBounds(d(2025, 6, 4))
	assert.Equal(t, d(2025, 6, 2), start)
	assert.Equal(t, d(2025, 6, 8), end)

	// Sunday belongs to the week that started the previous Monday.
	start, end = WeekBounds(d(2025, 6, 8))
	assert.Equal(t, d(2025, 6, 2), start)
	assert.Equal(t, d(2025, 6, 8), end)

	// Monday is its own week start.
	start, _ = WeekBounds(d(2025, 6, 2))
	assert.Equal(t, d(2025, 6, 2), start)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2025, time.June)
	require.Equal(t, d(2025, 6, 1), start)
	assert.Equal(t, d(2025, 6, 30), end)

	// Leap February.
	_, end = MonthBounds(2024, time.February)
	assert.Equal(t, d(2024, 2, 29), end)
}
