package transfer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/student"
)

// Sheets
const (
	StudentsSheet   = "Students"
	CountersSheet   = "Daily Stats"
	AttendanceSheet = "Attendance"
)

const timeLayout = "03:04:05 PM"

type column struct {
	header string
	width  float64
}

var (
	studentColumns = []column{
		{"LRN", 15}, {"First Name", 25}, {"Last Name", 25}, {"M.I.", 10}, {"Sex", 10}, {"Grade", 10}, {"Attendance", 15},
	}
	counterColumns = []column{
		{"Date", 15}, {"Grade 7", 10}, {"Grade 8", 10}, {"Grade 9", 10}, {"Grade 10", 10}, {"Total", 10},
	}
	dayColumns   = []column{{"Time", 15}, {"Name", 30}, {"LRN", 20}, {"Grade", 15}}
	rangeColumns = append([]column{{"Date", 15}}, dayColumns...)
)

// newWorkbook returns a workbook whose only sheet is `sheet`, with a header row.
func newWorkbook(sheet string, columns []column) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "naming sheet")
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.header
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.width); err != nil {
			f.Close() //nolint:errcheck
			return nil, errors.Wrap(err, "sizing columns")
		}
	}
	if err := setRow(f, sheet, 1, header...); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return errors.Wrap(err, "writing row")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return errors.Wrapf(err, "writing cell %s", cell)
		}
	}
	return nil
}

func writeWorkbook(w io.Writer, f *excelize.File) error {
	defer f.Close() //nolint:errcheck
	_, err := f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}

// readRows returns the rows of the first sheet of a workbook.
func readRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &core.ImportError{Err: errors.Wrap(err, "invalid spreadsheet")}
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &core.ImportError{Err: errors.New("no worksheet found")}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &core.ImportError{Err: errors.Wrap(err, "invalid spreadsheet")}
	}
	return rows, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for i := range row {
		if cellValue(row, i) != "" {
			return false
		}
	}
	return true
}

// ExportStudentsXLSX writes the students workbook.
func ExportStudentsXLSX(w io.Writer, students []student.Student) error {
	f, err := newWorkbook(StudentsSheet, studentColumns)
	if err != nil {
		return err
	}
	for i, s := range students {
		if err := setRow(f, StudentsSheet, i+2,
			s.LRN, s.FirstName, s.LastName, s.MiddleInitial, string(s.Sex), string(s.Grade), s.Attendance,
		); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
	}
	return writeWorkbook(w, f)
}

// ImportStudentsXLSX adds the students of the first sheet, reading columns by position from row 2.
// Blank rows are ignored; rows without an LRN, sex or grade are skipped.
func ImportStudentsXLSX(ctx context.Context, r io.Reader, adder StudentAdder) (Result, error) {
	var res Result
	rows, err := readRows(r)
	if err != nil {
		return res, err
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		lrn := cellValue(row, 0)
		if lrn == "" {
			if !isBlank(row) {
				res.Skipped++
			}
			continue
		}
		sex, grade := cellValue(row, 4), cellValue(row, 5)
		if sex == "" || grade == "" {
			res.Skipped++
			continue
		}
		ns := newStudent(lrn, cellValue(row, 1), cellValue(row, 3), cellValue(row, 2), sex, grade)
		if err := addRecord(ctx, adder, ns, &res); err != nil {
			return res, errors.Wrapf(err, "importing row %d", i+1)
		}
	}
	return res, nil
}

// ExportCountersXLSX writes the daily counters workbook.
func ExportCountersXLSX(w io.Writer, counters []attendance.DailyCounter) error {
	f, err := newWorkbook(CountersSheet, counterColumns)
	if err != nil {
		return err
	}
	for i, c := range counters {
		if err := setRow(f, CountersSheet, i+2, c.Date, c.Grade7, c.Grade8, c.Grade9, c.Grade10, c.Total()); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
	}
	return writeWorkbook(w, f)
}

// ParseCountersXLSX reads the daily counters of the first sheet. Missing tallies are 0; the Total
// column is ignored.
func ParseCountersXLSX(r io.Reader) ([]attendance.DailyCounter, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	counters := make([]attendance.DailyCounter, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		raw := cellValue(row, 0)
		if raw == "" {
			continue
		}
		date, err := parseDateCell(raw)
		if err != nil {
			return nil, &core.ImportError{Row: i + 1, Err: err}
		}

		c := attendance.DailyCounter{Date: date}
		for j, g := range student.Grades {
			n, err := parseCount(cellValue(row, j+1))
			if err != nil {
				return nil, &core.ImportError{Row: i + 1, Err: errors.Wrapf(err, "grade %s", g)}
			}
			c.Set(g, n) //nolint:errcheck
		}
		counters = append(counters, c)
	}
	return counters, nil
}

// ImportCountersXLSX overwrites the counters found in the workbook and returns how many there were.
func ImportCountersXLSX(ctx context.Context, r io.Reader, importer CounterImporter) (int, error) {
	counters, err := ParseCountersXLSX(r)
	if err != nil {
		return 0, err
	}
	if err := importer.ImportCounters(ctx, counters...); err != nil {
		return 0, err
	}
	return len(counters), nil
}

// parseDateCell accepts YYYY-MM-DD and Excel date serials.
func parseDateCell(raw string) (string, error) {
	if t, err := time.Parse(core.DateLayout, raw); err == nil {
		return t.Format(core.DateLayout), nil
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(core.DateLayout), nil
		}
	}
	return "", errors.Errorf("invalid date %q", raw)
}

func parseCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, errors.Errorf("invalid count %q", raw)
	}
	return int(f), nil
}

// ExportAttendanceXLSX writes the attendance workbook of events. A single-day export (from == to)
// gets a sheet named after the date and no date column.
func ExportAttendanceXLSX(
	w io.Writer,
	events []attendance.Event,
	students []student.Student,
	from, to string,
	loc *time.Location,
) error {
	if len(events) == 0 {
		return core.NewValidationError(attendance.ErrNoData)
	}

	byLRN := make(map[string]student.Student, len(students))
	for _, s := range students {
		byLRN[s.LRN] = s
	}

	single := from == to
	sheet, columns := AttendanceSheet, rangeColumns
	if single {
		sheet, columns = fmt.Sprintf("%s - %s", AttendanceSheet, from), dayColumns
	}

	f, err := newWorkbook(sheet, columns)
	if err != nil {
		return err
	}
	for i, e := range events {
		ts := localTime(e.Timestamp, loc)
		var name string
		grade := e.Grade
		if s, ok := byLRN[e.StudentLRN]; ok {
			name, grade = s.DisplayName(), s.Grade
		}

		values := []interface{}{ts.Format(timeLayout), name, e.StudentLRN, string(grade)}
		if !single {
			values = append([]interface{}{ts.Format(core.DateLayout)}, values...)
		}
		if err := setRow(f, sheet, i+2, values...); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
	}
	return writeWorkbook(w, f)
}
