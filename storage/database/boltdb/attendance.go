package boltdb

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

type attendanceRepository struct {
	db *bolt.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *bolt.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// LogAttendanceEvent appends the event and bumps the student's attendance in a single
// bolt transaction: either both are committed or neither is.
func (repo *attendanceRepository) LogAttendanceEvent(
	ctx context.Context,
	s student.Student,
	ts time.Time,
) (attendance.Event, student.Student, error) {
	var (
		evt    attendance.Event
		stored student.Student
	)
	err := update(ctx, repo.db, "log attendance", func(tx *bolt.Tx) error {
		students, err := bucket(tx, studentsBucket)
		if err != nil {
			return err
		}
		events, err := bucket(tx, eventsBucket)
		if err != nil {
			return err
		}

		found, err := get(students, []byte(s.LRN), &stored)
		if err != nil {
			return err
		}
		if !found {
			return student.ErrNotFound
		}

		seq, err := events.NextSequence()
		if err != nil {
			return err
		}
		evt = attendance.Event{
			ID:         seq,
			StudentLRN: stored.LRN,
			Timestamp:  ts,
			Grade:      stored.Grade,
			Sex:        stored.Sex,
		}
		if err := put(events, itob(seq), evt); err != nil {
			return err
		}

		stored.Attendance++
		return put(students, []byte(stored.LRN), stored)
	}, student.ErrNotFound)
	if err != nil {
		return attendance.Event{}, student.Student{}, err
	}
	return evt, stored, nil
}

func (repo *attendanceRepository) scanEvents(ctx context.Context, op string, keep func(attendance.Event) bool) ([]attendance.Event, error) {
	events := make([]attendance.Event, 0)
	err := view(ctx, repo.db, op, func(tx *bolt.Tx) error {
		b, err := bucket(tx, eventsBucket)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if v == nil {
				continue
			}
			var e attendance.Event
			if _, err := get(b, k, &e); err != nil {
				return err
			}
			if keep(e) {
				events = append(events, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (repo *attendanceRepository) GetEventsBetween(ctx context.Context, from, to time.Time) ([]attendance.Event, error) {
	return repo.scanEvents(ctx, "get events between", func(e attendance.Event) bool {
		return core.InRange(e.Timestamp, from, to)
	})
}

func (repo *attendanceRepository) GetAllEvents(ctx context.Context) ([]attendance.Event, error) {
	return repo.scanEvents(ctx, "get all events", func(attendance.Event) bool { return true })
}

func (repo *attendanceRepository) GetDailyCounter(ctx context.Context, date string) (attendance.DailyCounter, error) {
	var c attendance.DailyCounter
	err := update(ctx, repo.db, "get daily counter", func(tx *bolt.Tx) error {
		b, err := bucket(tx, countersBucket)
		if err != nil {
			return err
		}
		found, err := get(b, []byte(date), &c)
		if err != nil || found {
			return err
		}
		c = attendance.DailyCounter{Date: date}
		return put(b, []byte(date), c)
	})
	if err != nil {
		return attendance.DailyCounter{}, err
	}
	return c, nil
}

func (repo *attendanceRepository) IncrementDailyCounter(
	ctx context.Context,
	date string,
	grade student.Grade,
) (attendance.DailyCounter, error) {
	var c attendance.DailyCounter
	err := update(ctx, repo.db, "increment daily counter", func(tx *bolt.Tx) error {
		b, err := bucket(tx, countersBucket)
		if err != nil {
			return err
		}
		found, err := get(b, []byte(date), &c)
		if err != nil {
			return err
		}
		if !found {
			c = attendance.DailyCounter{Date: date}
		}
		if err := c.Increment(grade); err != nil {
			return err
		}
		return put(b, []byte(date), c)
	}, student.ErrInvalidGrade)
	if err != nil {
		return attendance.DailyCounter{}, err
	}
	return c, nil
}

func (repo *attendanceRepository) GetDailyCounters(ctx context.Context) ([]attendance.DailyCounter, error) {
	counters := make([]attendance.DailyCounter, 0)
	err := view(ctx, repo.db, "get daily counters", func(tx *bolt.Tx) error {
		b, err := bucket(tx, countersBucket)
		if err != nil {
			return err
		}
		// keys are YYYY-MM-DD, so byte order is date order
		return b.ForEach(func(k, _ []byte) error {
			var c attendance.DailyCounter
			if _, err := get(b, k, &c); err != nil {
				return err
			}
			counters = append(counters, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (repo *attendanceRepository) PutDailyCounters(ctx context.Context, counters ...attendance.DailyCounter) error {
	return update(ctx, repo.db, "put daily counters", func(tx *bolt.Tx) error {
		b, err := bucket(tx, countersBucket)
		if err != nil {
			return err
		}
		for _, c := range counters {
			if err := put(b, []byte(c.Date), c); err != nil {
				return err
			}
		}
		return nil
	})
}
