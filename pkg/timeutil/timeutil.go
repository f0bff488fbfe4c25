// Package timeutil provides calendar-day helpers for streak tracking and
// daily challenge selection. All comparisons are made on calendar dates in
// a caller-chosen location, never on 24h durations, so DST shifts do not
// break or extend a streak.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Common date formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatJSDate mirrors JavaScript's Date.prototype.toDateString ("Fri Oct 16 2026").
	FormatJSDate = "Mon Jan 02 2006"
)

// LoadLocation resolves a timezone name. Empty or "Local" means time.Local.
// Unknown names fall back to UTC and report the error.
func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// civilDay returns t's calendar date in loc as a UTC midnight, which makes
// day arithmetic independent of DST.
func civilDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// IsSameDay checks if two times fall on the same calendar date in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	return civilDay(t1, loc).Equal(civilDay(t2, loc))
}

// IsConsecutiveDay checks if t2 is on the calendar day right after t1 in loc.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	return DaysBetween(t1, t2, loc) == 1
}

// DaysBetween returns the signed number of calendar days from t1 to t2 in loc.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	d := civilDay(t2, loc).Sub(civilDay(t1, loc))
	return int(d.Hours() / 24)
}

// JSDateString formats t's calendar date the way the browser client keys
// its daily challenges.
func JSDateString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatJSDate)
}

// FormatDateStr formats a time as YYYY-MM-DD in loc.
func FormatDateStr(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatDate)
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, loc)
}
