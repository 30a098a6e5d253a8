package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/student"
)

var (
	// errors
	ErrInvalidRange = errors.New("start date must not be after end date")
	ErrNoData       = errors.New("no attendance data")
)

type (
	Repository interface {
		// LogAttendanceEvent appends an event for the student and increments their attendance,
		// both in one transaction. Returns student.ErrNotFound, with nothing written, for unknown LRNs.
		LogAttendanceEvent(ctx context.Context, s student.Student, ts time.Time) (Event, student.Student, error)
		// GetEventsBetween returns events with from <= timestamp < to, in sequence order.
		GetEventsBetween(ctx context.Context, from, to time.Time) ([]Event, error)
		GetAllEvents(ctx context.Context) ([]Event, error)
		// GetDailyCounter returns the counter of date, creating a zeroed one if absent.
		GetDailyCounter(ctx context.Context, date string) (DailyCounter, error)
		// IncrementDailyCounter increments one grade of date's counter, creating it if absent.
		IncrementDailyCounter(ctx context.Context, date string, grade student.Grade) (DailyCounter, error)
		// GetDailyCounters returns every counter ordered by date.
		GetDailyCounters(ctx context.Context) ([]DailyCounter, error)
		// PutDailyCounters overwrites counters wholesale.
		PutDailyCounters(ctx context.Context, counters ...DailyCounter) error
	}

	// Notifier is told about today's counter after every check-in.
	Notifier interface {
		NotifyCounter(c DailyCounter)
	}

	Service struct {
		repo      Repository
		students  student.Repository
		validate  *validator.Validate
		loc       *time.Location
		notifiers []Notifier
	}
)

func NewService(
	repo Repository,
	students student.Repository,
	validate *validator.Validate,
	loc *time.Location,
	notifiers ...Notifier,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:      repo,
		students:  students,
		validate:  validate,
		loc:       loc,
		notifiers: notifiers,
	}
}

func (svc *Service) Location() *time.Location { return svc.loc }

func (svc *Service) now() time.Time { return core.NowFunc().In(svc.loc) }

// CheckIn logs a visit for the student with the given LRN, then bumps today's counter.
func (svc *Service) CheckIn(ctx context.Context, data CheckInRequest) (CheckIn, error) {
	data.LRN = core.CleanString(data.LRN)
	if err := svc.validate.Struct(data); err != nil {
		return CheckIn{}, err
	}

	s, err := svc.students.GetStudentByID(ctx, data.LRN)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return CheckIn{}, &UnknownStudentError{LRN: data.LRN}
		}
		return CheckIn{}, errors.Wrap(err, "finding student")
	}

	now := svc.now()
	evt, s, err := svc.repo.LogAttendanceEvent(ctx, s, now)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound { // deleted meanwhile
			return CheckIn{}, &UnknownStudentError{LRN: data.LRN}
		}
		return CheckIn{}, errors.Wrap(err, "logging attendance event")
	}

	counter, err := svc.repo.IncrementDailyCounter(ctx, core.LocalDate(now, svc.loc), evt.Grade)
	if err != nil {
		return CheckIn{}, errors.Wrap(err, "incrementing daily counter")
	}
	for _, n := range svc.notifiers {
		n.NotifyCounter(counter)
	}

	return CheckIn{
		Student:  s,
		Event:    evt,
		Counter:  counter,
		Greeting: Greeting(now),
	}, nil
}

// TodaysEvents returns the events of the current local calendar date.
func (svc *Service) TodaysEvents(ctx context.Context) ([]Event, error) {
	start, end := core.DayBounds(svc.now(), svc.loc)
	return svc.repo.GetEventsBetween(ctx, start, end)
}

// EventsOn returns the events of a local calendar date (YYYY-MM-DD).
func (svc *Service) EventsOn(ctx context.Context, date string) ([]Event, error) {
	return svc.EventsBetween(ctx, date, date)
}

// EventsBetween returns the events from the start of `from` to the end of `to`, both local dates.
func (svc *Service) EventsBetween(ctx context.Context, from, to string) ([]Event, error) {
	start, err := core.ParseDate(from, svc.loc)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "from", Error: "invalid date"})
	}
	last, err := core.ParseDate(to, svc.loc)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "to", Error: "invalid date"})
	}
	if start.After(last) {
		return nil, core.NewValidationError(ErrInvalidRange)
	}
	_, end := core.DayBounds(last, svc.loc)

	events, err := svc.repo.GetEventsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	SortByTime(events)
	return events, nil
}

func (svc *Service) AllEvents(ctx context.Context) ([]Event, error) {
	return svc.repo.GetAllEvents(ctx)
}

// TodaysCounter returns today's counter, creating it lazily.
func (svc *Service) TodaysCounter(ctx context.Context) (DailyCounter, error) {
	return svc.repo.GetDailyCounter(ctx, core.LocalDate(svc.now(), svc.loc))
}

// IncrementTodaysCounter increments one grade of today's counter.
func (svc *Service) IncrementTodaysCounter(ctx context.Context, grade student.Grade) (DailyCounter, error) {
	if !grade.IsValid() {
		return DailyCounter{}, core.NewValidationError(student.ErrInvalidGrade)
	}
	return svc.repo.IncrementDailyCounter(ctx, core.LocalDate(svc.now(), svc.loc), grade)
}

func (svc *Service) DailyCounters(ctx context.Context) ([]DailyCounter, error) {
	return svc.repo.GetDailyCounters(ctx)
}

// ImportCounters overwrites the given counters wholesale.
func (svc *Service) ImportCounters(ctx context.Context, counters ...DailyCounter) error {
	for _, c := range counters {
		if _, err := core.ParseDate(c.Date, svc.loc); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
		}
	}
	return svc.repo.PutDailyCounters(ctx, counters...)
}

// SortByTime stable-sorts events by ascending timestamp.
func SortByTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
}
