// Package stats computes read-only aggregates over snapshots of attendance events and students.
// Every function is pure: the reference time and location are passed in.
package stats

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

// Periods
const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

const (
	DefaultTopVisitorsLimit    = 3
	DefaultRecentVisitorsLimit = 5

	TimeLayout = "03:04 PM"
)

var ErrInvalidPeriod = errors.New("period must be one of day, week, month")

type Period string

func ParsePeriod(s string) (Period, error) {
	switch p := Period(core.CleanString(s, true /* lower */)); p {
	case "":
		return Day, nil
	case Day, Week, Month:
		return p, nil
	}
	return "", ErrInvalidPeriod
}

// Bounds returns [start, end) of the period containing now.
func (p Period) Bounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	switch p {
	case Week:
		return core.WeekBounds(now, loc)
	case Month:
		return core.MonthBounds(now, loc)
	default:
		return core.DayBounds(now, loc)
	}
}

type (
	SexCount struct {
		Male   int `json:"Male"`
		Female int `json:"Female"`
	}

	// Breakdown maps each grade to its male/female visit counts.
	Breakdown map[student.Grade]SexCount

	TopVisitor struct {
		LRN    string        `json:"lrn"`
		Name   string        `json:"name"`
		Grade  student.Grade `json:"grade"`
		Visits int           `json:"visits"`
	}

	Snapshot struct {
		Total  int `json:"total"`
		Unique int `json:"unique"`
	}

	RecentVisitor struct {
		LRN       string        `json:"lrn"`
		Name      string        `json:"name"`
		Grade     student.Grade `json:"grade"`
		Time      string        `json:"time"`
		Timestamp time.Time     `json:"timestamp"`
	}

	TrendPoint struct {
		Date   string `json:"date"`
		Visits int    `json:"visits"`
	}
)

func index(students []student.Student) map[string]student.Student {
	m := make(map[string]student.Student, len(students))
	for _, s := range students {
		m[s.LRN] = s
	}
	return m
}

func within(events []attendance.Event, start, end time.Time) []attendance.Event {
	filtered := make([]attendance.Event, 0, len(events))
	for _, e := range events {
		if core.InRange(e.Timestamp, start, end) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func newBreakdown() Breakdown {
	b := make(Breakdown, len(student.Grades))
	for _, g := range student.Grades {
		b[g] = SexCount{}
	}
	return b
}

// GenderBreakdownForPeriod counts the period's visits per grade and sex of the referenced student.
// Visits of deleted students are skipped.
func GenderBreakdownForPeriod(
	events []attendance.Event,
	students []student.Student,
	period Period,
	now time.Time,
	loc *time.Location,
) Breakdown {
	byLRN := index(students)
	start, end := period.Bounds(now, loc)

	b := newBreakdown()
	for _, e := range within(events, start, end) {
		s, ok := byLRN[e.StudentLRN]
		if !ok {
			continue
		}
		sc, ok := b[s.Grade]
		if !ok {
			continue
		}
		switch s.Sex {
		case student.Male:
			sc.Male++
		case student.Female:
			sc.Female++
		}
		b[s.Grade] = sc
	}
	return b
}

// TopVisitorsForMonth ranks students by visits within the local calendar month of now.
// Ties keep the order in which students first appear in events.
func TopVisitorsForMonth(
	events []attendance.Event,
	students []student.Student,
	limit int,
	now time.Time,
	loc *time.Location,
) []TopVisitor {
	if limit <= 0 {
		limit = DefaultTopVisitorsLimit
	}
	byLRN := index(students)
	start, end := core.MonthBounds(now, loc)

	var order []string
	counts := make(map[string]int)
	for _, e := range within(events, start, end) {
		if _, ok := byLRN[e.StudentLRN]; !ok {
			continue
		}
		if _, seen := counts[e.StudentLRN]; !seen {
			order = append(order, e.StudentLRN)
		}
		counts[e.StudentLRN]++
	}

	top := make([]TopVisitor, 0, len(order))
	for _, lrn := range order {
		s := byLRN[lrn]
		top = append(top, TopVisitor{
			LRN:    lrn,
			Name:   s.DisplayName(),
			Grade:  s.Grade,
			Visits: counts[lrn],
		})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Visits > top[j].Visits })
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

// TodaysSnapshot returns today's visit count and distinct visitor count.
func TodaysSnapshot(events []attendance.Event, now time.Time, loc *time.Location) Snapshot {
	start, end := core.DayBounds(now, loc)
	today := within(events, start, end)

	unique := make(map[string]struct{}, len(today))
	for _, e := range today {
		unique[e.StudentLRN] = struct{}{}
	}
	return Snapshot{Total: len(today), Unique: len(unique)}
}

// RecentVisitors returns today's latest visits, newest first.
func RecentVisitors(
	events []attendance.Event,
	students []student.Student,
	limit int,
	now time.Time,
	loc *time.Location,
) []RecentVisitor {
	if limit <= 0 {
		limit = DefaultRecentVisitorsLimit
	}
	if loc == nil {
		loc = time.Local
	}
	byLRN := index(students)
	start, end := core.DayBounds(now, loc)

	today := within(events, start, end)
	sort.SliceStable(today, func(i, j int) bool {
		if today[i].Timestamp.Equal(today[j].Timestamp) {
			return today[i].ID > today[j].ID
		}
		return today[i].Timestamp.After(today[j].Timestamp)
	})

	recent := make([]RecentVisitor, 0, limit)
	for _, e := range today {
		if len(recent) == limit {
			break
		}
		s, ok := byLRN[e.StudentLRN]
		if !ok {
			continue
		}
		recent = append(recent, RecentVisitor{
			LRN:       s.LRN,
			Name:      s.DisplayName(),
			Grade:     s.Grade,
			Time:      e.Timestamp.In(loc).Format(TimeLayout),
			Timestamp: e.Timestamp,
		})
	}
	return recent
}

// DailyTrend sums the grade tallies of each counter, ordered by date.
func DailyTrend(counters []attendance.DailyCounter) []TrendPoint {
	points := make([]TrendPoint, 0, len(counters))
	for _, c := range counters {
		points = append(points, TrendPoint{Date: c.Date, Visits: c.Total()})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// VisitsPerGrade counts all-time visits per current grade of the referenced student.
func VisitsPerGrade(events []attendance.Event, students []student.Student) map[student.Grade]int {
	byLRN := index(students)
	visits := make(map[student.Grade]int, len(student.Grades))
	for _, g := range student.Grades {
		visits[g] = 0
	}
	for _, e := range events {
		if s, ok := byLRN[e.StudentLRN]; ok {
			visits[s.Grade]++
		}
	}
	return visits
}
