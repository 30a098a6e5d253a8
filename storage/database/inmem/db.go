package inmemdb

import (
	"sync"

	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

type (
	// DB is a mutex-protected in-memory store.
	// One lock guards all tables since attendance logging spans two of them.
	DB struct {
		mutex sync.RWMutex

		students map[string]*student.Student
		events   []attendance.Event
		counters map[string]*attendance.DailyCounter
		settings map[string]int
		eventSeq uint64
	}
)

func Open() *DB {
	return &DB{
		students: make(map[string]*student.Student),
		counters: make(map[string]*attendance.DailyCounter),
		settings: make(map[string]int),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.students = make(map[string]*student.Student)
	db.events = nil
	db.counters = make(map[string]*attendance.DailyCounter)
	db.settings = make(map[string]int)
	db.eventSeq = 0
}
