package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

// NewValidator returns a validator with every custom validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate, translator
}

// FreezeTime makes core.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	lrn, first, last string,
	sex student.Sex,
	grade student.Grade,
	mi ...string,
) student.Student {
	s := student.Student{
		LRN:           lrn,
		FirstName:     first,
		MiddleInitial: student.NoMiddleInitial,
		LastName:      last,
		Sex:           sex,
		Grade:         grade,
	}
	if len(mi) > 0 {
		s.MiddleInitial = mi[0]
	}
	added, err := repo.AddStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if !added {
		t.Fatalf("CreateStudent() failed: LRN %s exists", lrn)
	}
	return s
}

// LogVisits logs n visits of s at ts, bumping the daily counter of ts's local date.
func LogVisits(
	t *testing.T,
	repo attendance.Repository,
	s student.Student,
	ts time.Time,
	loc *time.Location,
	n int,
) []attendance.Event {
	ctx := context.Background()
	events := make([]attendance.Event, 0, n)
	for i := 0; i < n; i++ {
		evt, _, err := repo.LogAttendanceEvent(ctx, s, ts)
		if err != nil {
			t.Fatalf("LogVisits() failed: %v", err)
		}
		if _, err = repo.IncrementDailyCounter(ctx, core.LocalDate(ts, loc), evt.Grade); err != nil {
			t.Fatalf("LogVisits() failed: %v", err)
		}
		events = append(events, evt)
	}
	return events
}
