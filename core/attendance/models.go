package attendance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core/student"
)

// Event is an append-only record of one check-in. Grade and Sex are copied from the
// student at visit time; StudentLRN may dangle once the student is deleted.
type Event struct {
	ID         uint64        `json:"id"`
	StudentLRN string        `json:"studentLrn"`
	Timestamp  time.Time     `json:"timestamp"`
	Grade      student.Grade `json:"grade"`
	Sex        student.Sex   `json:"sex"`
}

// DailyCounter is the per-grade visit tally of one local calendar date.
type DailyCounter struct {
	Date    string `json:"date"`
	Grade7  int    `json:"grade7"`
	Grade8  int    `json:"grade8"`
	Grade9  int    `json:"grade9"`
	Grade10 int    `json:"grade10"`
}

func (c *DailyCounter) tally(g student.Grade) (*int, error) {
	switch g {
	case student.Grade7:
		return &c.Grade7, nil
	case student.Grade8:
		return &c.Grade8, nil
	case student.Grade9:
		return &c.Grade9, nil
	case student.Grade10:
		return &c.Grade10, nil
	}
	return nil, errors.Wrapf(student.ErrInvalidGrade, "%q", g)
}

// Get returns the tally of grade g; 0 for unknown grades.
func (c DailyCounter) Get(g student.Grade) int {
	if n, err := c.tally(g); err == nil {
		return *n
	}
	return 0
}

func (c *DailyCounter) Set(g student.Grade, n int) error {
	p, err := c.tally(g)
	if err != nil {
		return err
	}
	*p = n
	return nil
}

func (c *DailyCounter) Increment(g student.Grade) error {
	p, err := c.tally(g)
	if err != nil {
		return err
	}
	*p++
	return nil
}

func (c DailyCounter) Total() int {
	return c.Grade7 + c.Grade8 + c.Grade9 + c.Grade10
}

// UnknownStudentError is returned by a check-in with an unknown LRN.
type UnknownStudentError struct {
	LRN string
}

func (err UnknownStudentError) Error() string {
	return fmt.Sprintf("Student with LRN %s not found!", err.LRN)
}

// CheckIn is the outcome of one successful kiosk check-in.
type CheckIn struct {
	Student  student.Student `json:"student"`
	Event    Event           `json:"event"`
	Counter  DailyCounter    `json:"counter"`
	Greeting string          `json:"greeting"`
}

type CheckInRequest struct {
	LRN string `json:"lrn" validate:"required,lrn"`
}

type DateQuery struct {
	Date string `query:"date" validate:"date"`
	From string `query:"from" validate:"date,required_with=To"`
	To   string `query:"to" validate:"date"`
}

// Greeting returns the kiosk greeting for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}
