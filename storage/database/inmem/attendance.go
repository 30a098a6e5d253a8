package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) LogAttendanceEvent(
	_ context.Context,
	s student.Student,
	ts time.Time,
) (attendance.Event, student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.students[s.LRN]
	if !ok {
		return attendance.Event{}, student.Student{}, student.ErrNotFound
	}

	repo.db.eventSeq++
	evt := attendance.Event{
		ID:         repo.db.eventSeq,
		StudentLRN: stored.LRN,
		Timestamp:  ts,
		Grade:      stored.Grade,
		Sex:        stored.Sex,
	}
	repo.db.events = append(repo.db.events, evt)
	stored.Attendance++
	return evt, *stored, nil
}

func (repo *attendanceRepository) GetEventsBetween(_ context.Context, from, to time.Time) ([]attendance.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]attendance.Event, 0)
	for _, e := range repo.db.events {
		if core.InRange(e.Timestamp, from, to) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (repo *attendanceRepository) GetAllEvents(_ context.Context) ([]attendance.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]attendance.Event, len(repo.db.events))
	copy(events, repo.db.events)
	return events, nil
}

func (repo *attendanceRepository) counter(date string) *attendance.DailyCounter {
	c, ok := repo.db.counters[date]
	if !ok {
		c = &attendance.DailyCounter{Date: date}
		repo.db.counters[date] = c
	}
	return c
}

func (repo *attendanceRepository) GetDailyCounter(_ context.Context, date string) (attendance.DailyCounter, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return *repo.counter(date), nil
}

func (repo *attendanceRepository) IncrementDailyCounter(
	_ context.Context,
	date string,
	grade student.Grade,
) (attendance.DailyCounter, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c := *repo.counter(date)
	if err := c.Increment(grade); err != nil {
		return attendance.DailyCounter{}, err
	}
	repo.db.counters[date] = &c
	return c, nil
}

func (repo *attendanceRepository) GetDailyCounters(_ context.Context) ([]attendance.DailyCounter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counters := make([]attendance.DailyCounter, 0, len(repo.db.counters))
	for _, c := range repo.db.counters {
		counters = append(counters, *c)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].Date < counters[j].Date })
	return counters, nil
}

func (repo *attendanceRepository) PutDailyCounters(_ context.Context, counters ...attendance.DailyCounter) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range counters {
		c := c
		repo.db.counters[c.Date] = &c
	}
	return nil
}
