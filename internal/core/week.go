package core

import (
	"fmt"
	"time"
)

// WeekKeyAt returns the YYYY-WW week key for a point in time. The week
// number is 1-based, derived from the day of year offset by the weekday
// of January 1st (Sunday = 0):
//
//	week = ceil((daysSinceJan1 + jan1Weekday + 1) / 7)
//
// zero-padded to two digits. Keys are stable within a calendar day and
// lexicographically non-decreasing across week boundaries within a year.
func WeekKeyAt(t time.Time) string {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	days := t.YearDay() - 1
	offset := int(jan1.Weekday())
	week := (days + offset + 1 + 6) / 7 // ceil division by 7
	return fmt.Sprintf("%d-%02d", t.Year(), week)
}

// CurrentWeek returns the week key for the current date.
func CurrentWeek() string {
	return WeekKeyAt(time.Now())
}

// IsWeekKey reports whether s has the YYYY-WW shape.
func IsWeekKey(s string) bool {
	if len(s) != 7 || s[4] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
