// Package calendar provides calendar-day arithmetic on time.Time values.
// All functions are pure and interpret dates in the location of their arguments.
package calendar

import "time"

// AddDays returns t shifted by n calendar days, keeping the wall-clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths returns t shifted by n calendar months.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// SetTime returns the same calendar day as t at hour:minute, with seconds zeroed.
func SetTime(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

// StartOfDay returns midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return SetTime(t, 0, 0)
}

// DaysBetween returns the number of calendar days from start to end, evaluated
// in start's location. It is negative when end falls on an earlier day.
func DaysBetween(start, end time.Time) int {
	end = end.In(start.Location())
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	// UTC midnights have no DST gaps, so the difference is an exact multiple of 24h.
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Days enumerates the start of each calendar day in [start, end).
func Days(start, end time.Time) []time.Time {
	n := DaysBetween(start, end)
	if n <= 0 {
		return nil
	}
	first := StartOfDay(start)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, AddDays(first, i))
	}
	return days
}

// IsSameDay reports whether a and b fall on the same calendar day in a's location.
func IsSameDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 0
}

// IsToday reports whether t falls on the same calendar day as now.
func IsToday(t, now time.Time) bool {
	return IsSameDay(now, t)
}
