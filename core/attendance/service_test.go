package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/storage/database/inmem"
	"github.com/trezcool/libkiosk/tests"
)

type notifierMock struct {
	mu       sync.Mutex
	counters []attendance.DailyCounter
}

func (n *notifierMock) NotifyCounter(c attendance.DailyCounter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counters = append(n.counters, c)
}

type fixture struct {
	svc      *attendance.Service
	repo     attendance.Repository
	students student.Repository
	notifier *notifierMock
	loc      *time.Location
}

func setup(t *testing.T) fixture {
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	validate, _ := testutil.NewValidator()
	db := inmemdb.Open()
	f := fixture{
		repo:     inmemdb.NewAttendanceRepository(db),
		students: inmemdb.NewStudentRepository(db),
		notifier: &notifierMock{},
		loc:      loc,
	}
	f.svc = attendance.NewService(f.repo, f.students, validate, loc, f.notifier)
	return f
}

func TestService_CheckIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2024, time.May, 15, 9, 30, 0, 0, f.loc)
	testutil.FreezeTime(t, now)

	s := testutil.CreateStudent(t, f.students, "1001", "Ana", "Lim", student.Female, student.Grade8)

	const n = 3
	for i := 1; i <= n; i++ {
		res, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{LRN: " 1001 "})
		require.NoError(t, err)
		assert.Equal(t, i, res.Student.Attendance)
		assert.Equal(t, uint64(i), res.Event.ID)
		assert.Equal(t, "1001", res.Event.StudentLRN)
		assert.True(t, now.Equal(res.Event.Timestamp))
		assert.Equal(t, attendance.DailyCounter{Date: "2024-05-15", Grade8: i}, res.Counter)
		assert.Equal(t, "Good Morning", res.Greeting)
	}

	got, err := f.students.GetStudentByID(ctx, s.LRN)
	require.NoError(t, err)
	assert.Equal(t, n, got.Attendance)

	events, err := f.svc.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, n)

	assert.Len(t, f.notifier.counters, n)
	assert.Equal(t, n, f.notifier.counters[n-1].Grade8)
}

func TestService_CheckIn_unknown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{LRN: "404"})
	uErr, ok := errors.Cause(err).(*attendance.UnknownStudentError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "Student with LRN 404 not found!", uErr.Error())

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{LRN: ""})
	assert.Error(t, err)

	events, err := f.svc.AllEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	counter, err := f.svc.TodaysCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counter.Total())
	assert.Empty(t, f.notifier.counters)
}

func TestService_TodaysEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	s := testutil.CreateStudent(t, f.students, "1001", "Ana", "Lim", student.Female, student.Grade8)
	late := time.Date(2024, time.May, 14, 23, 59, 0, 0, f.loc)
	early := time.Date(2024, time.May, 15, 0, 1, 0, 0, f.loc)
	testutil.LogVisits(t, f.repo, s, late, f.loc, 1)
	testutil.LogVisits(t, f.repo, s, early, f.loc, 2)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{name: "before midnight", now: time.Date(2024, time.May, 14, 23, 59, 30, 0, f.loc), want: 1},
		{name: "after midnight", now: time.Date(2024, time.May, 15, 12, 0, 0, 0, f.loc), want: 2},
		// 2024-05-15 01:00 in Manila is still 2024-05-14 in UTC
		{name: "UTC day differs", now: time.Date(2024, time.May, 14, 17, 0, 0, 0, time.UTC), want: 2},
		{name: "next day", now: time.Date(2024, time.May, 16, 8, 0, 0, 0, f.loc), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.FreezeTime(t, tt.now)
			events, err := f.svc.TodaysEvents(ctx)
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}
}

func TestService_EventsBetween(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	s := testutil.CreateStudent(t, f.students, "1001", "Ana", "Lim", student.Female, student.Grade8)
	for day := 10; day <= 14; day++ {
		testutil.LogVisits(t, f.repo, s, time.Date(2024, time.May, day, 23, 0, 0, 0, f.loc), f.loc, 1)
	}

	events, err := f.svc.EventsBetween(ctx, "2024-05-11", "2024-05-13")
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = f.svc.EventsOn(ctx, "2024-05-14")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = f.svc.EventsBetween(ctx, "2024-05-13", "2024-05-11")
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, attendance.ErrInvalidRange, vErr.Err)

	_, err = f.svc.EventsBetween(ctx, "yesterday", "2024-05-11")
	_, ok = errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
}

func TestService_Counters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.FreezeTime(t, time.Date(2024, time.May, 15, 9, 0, 0, 0, f.loc))

	c, err := f.svc.TodaysCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.DailyCounter{Date: "2024-05-15"}, c)

	c, err = f.svc.IncrementTodaysCounter(ctx, student.Grade10)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Grade10)

	_, err = f.svc.IncrementTodaysCounter(ctx, "11")
	assert.Error(t, err)

	require.NoError(t, f.svc.ImportCounters(ctx,
		attendance.DailyCounter{Date: "2024-05-15", Grade7: 4},
		attendance.DailyCounter{Date: "2024-05-01", Grade9: 2},
	))
	counters, err := f.svc.DailyCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []attendance.DailyCounter{
		{Date: "2024-05-01", Grade9: 2},
		{Date: "2024-05-15", Grade7: 4},
	}, counters)

	assert.Error(t, f.svc.ImportCounters(ctx, attendance.DailyCounter{Date: "15/05/2024"}))
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{hour: 0, want: "Good Morning"},
		{hour: 11, want: "Good Morning"},
		{hour: 12, want: "Good Afternoon"},
		{hour: 17, want: "Good Afternoon"},
		{hour: 18, want: "Good Evening"},
		{hour: 23, want: "Good Evening"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, attendance.Greeting(time.Date(2024, 1, 1, tt.hour, 30, 0, 0, time.UTC)))
	}
}
