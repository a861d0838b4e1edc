package domain

import (
	"fmt"
	"time"
)

// WeekOf returns the ISO-8601 week-numbering year and week for a timestamp.
// Attempts are grouped by this pair; the year matters at year boundaries,
// where the ISO week year differs from the calendar year.
func WeekOf(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// WeekStart returns the Monday 00:00 UTC that opens the given ISO week.
// Used for leaderboard headers; the week runs through the following Sunday.
func WeekStart(year, week int) time.Time {
	// January 4th is always inside ISO week 1 of its year.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// FormatSeconds renders a whole-second duration as mm:ss for display.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
