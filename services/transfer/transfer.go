// Package transfer imports and exports students, daily counters and attendance logs as JSON or
// spreadsheet files.
package transfer

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

// Formats
const (
	JSON Format = "json"
	XLSX Format = "xlsx"
)

const (
	ContentTypeJSON = "application/json; charset=UTF-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrUnknownFormat = errors.New("file must be a .json or .xlsx file")

type Format string

// FormatOf returns the format matching the extension of filename.
func FormatOf(filename string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")); f {
	case JSON, XLSX:
		return f, nil
	}
	return "", ErrUnknownFormat
}

func (f Format) ContentType() string {
	if f == XLSX {
		return ContentTypeXLSX
	}
	return ContentTypeJSON
}

type (
	// StudentAdder adds a student unless its LRN is taken.
	StudentAdder interface {
		Add(ctx context.Context, ns student.NewStudent) (bool, error)
	}

	CounterImporter interface {
		ImportCounters(ctx context.Context, counters ...attendance.DailyCounter) error
	}

	// Result counts the records of an import. Skipped records were invalid; duplicates are neither.
	Result struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}

	Service struct {
		students   *student.Service
		attendance *attendance.Service
		logger     core.Logger
	}
)

func NewService(students *student.Service, attendance *attendance.Service, logger core.Logger) *Service {
	return &Service{students: students, attendance: attendance, logger: logger}
}

func (svc *Service) ExportStudents(ctx context.Context, w io.Writer, format Format) error {
	students, err := svc.students.QueryAll(ctx)
	if err != nil {
		return err
	}
	if format == XLSX {
		return ExportStudentsXLSX(w, students)
	}
	return ExportStudentsJSON(w, students)
}

func (svc *Service) ImportStudents(ctx context.Context, r io.Reader, format Format) (Result, error) {
	var (
		res Result
		err error
	)
	if format == XLSX {
		res, err = ImportStudentsXLSX(ctx, r, svc.students)
	} else {
		res, err = ImportStudentsJSON(ctx, r, svc.students)
	}
	if err != nil {
		svc.logger.Error("student import failed", err)
		return res, err
	}
	svc.logger.Info("students imported", map[string]interface{}{"imported": res.Imported, "skipped": res.Skipped})
	return res, nil
}

func (svc *Service) ExportCounters(ctx context.Context, w io.Writer) error {
	counters, err := svc.attendance.DailyCounters(ctx)
	if err != nil {
		return err
	}
	return ExportCountersXLSX(w, counters)
}

func (svc *Service) ImportCounters(ctx context.Context, r io.Reader) (int, error) {
	n, err := ImportCountersXLSX(ctx, r, svc.attendance)
	if err != nil {
		svc.logger.Error("daily stats import failed", err)
		return n, err
	}
	svc.logger.Info("daily stats imported", map[string]interface{}{"imported": n})
	return n, nil
}

// ExportAttendance writes the attendance workbook of the local dates from to `to`, both included.
// An empty `to` exports the single day `from`.
func (svc *Service) ExportAttendance(ctx context.Context, w io.Writer, from, to string) error {
	if to == "" {
		to = from
	}
	events, err := svc.attendance.EventsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	students, err := svc.students.QueryAll(ctx)
	if err != nil {
		return err
	}
	return ExportAttendanceXLSX(w, events, students, from, to, svc.attendance.Location())
}

// addRecord adds one imported student, counting invalid records as skipped.
func addRecord(ctx context.Context, adder StudentAdder, ns student.NewStudent, res *Result) error {
	added, err := adder.Add(ctx, ns)
	if err != nil {
		if isInvalid(err) {
			res.Skipped++
			return nil
		}
		return err
	}
	if added {
		res.Imported++
	}
	return nil
}

func isInvalid(err error) bool {
	switch errors.Cause(err).(type) {
	case validator.ValidationErrors, *core.ValidationError:
		return true
	}
	return false
}

// newStudent builds a NewStudent from loosely typed cells; unparsable sex or grade are kept as is
// and fail validation.
func newStudent(lrn, first, mi, last, sex, grade string) student.NewStudent {
	ns := student.NewStudent{
		LRN:           lrn,
		FirstName:     first,
		MiddleInitial: mi,
		LastName:      last,
		Sex:           student.Sex(sex),
		Grade:         student.Grade(grade),
	}
	if s, err := student.ParseSex(sex); err == nil {
		ns.Sex = s
	}
	if g, err := student.ParseGrade(grade); err == nil {
		ns.Grade = g
	}
	return ns
}

func localTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc)
}
