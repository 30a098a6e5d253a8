package core

import (
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the layout of local calendar dates, used as DailyCounter keys.
const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

// LocalDate returns the calendar date of t in loc.
// Never compare UTC timestamp prefixes instead: near midnight they belong to another day.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// Today returns the current local calendar date.
func Today(loc *time.Location) string {
	return LocalDate(NowFunc(), loc)
}

// ParseDate parses a YYYY-MM-DD date as local midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing date %q", date)
	}
	return t, nil
}

// StartOfDay returns local midnight of the day t falls in.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns [start, end) of the local day t falls in. DST days are not 24h long.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns [start, end) of the local Monday-based week t falls in.
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	offset := (int(start.Weekday()) + 6) % 7 // Monday = 0
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [start, end) of the local calendar month t falls in.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// InRange reports whether t is within [start, end).
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
