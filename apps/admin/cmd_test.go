package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/logger"
	"github.com/trezcool/libkiosk/services/transfer"
	"github.com/trezcool/libkiosk/storage/database/inmem"
	"github.com/trezcool/libkiosk/tests"
)

var (
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	loc := time.UTC
	testutil.FreezeTime(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, loc))
	validate, _ := testutil.NewValidator()
	logger := logsvc.NewConsoleLogger(nil)

	// set up DB & repos
	db := inmemdb.Open()
	studentRepo = inmemdb.NewStudentRepository(db)
	attendanceRepo = inmemdb.NewAttendanceRepository(db)

	// start CLI
	studentSvc := student.NewService(studentRepo, validate)
	attendanceSvc := attendance.NewService(attendanceRepo, studentRepo, validate, loc)
	var out bytes.Buffer
	return &commandLine{
		students:   studentSvc,
		attendance: attendanceSvc,
		transfer:   transfer.NewService(studentSvc, attendanceSvc, logger),
		job:        promotion.NewJob(studentRepo, inmemdb.NewSettingsRepository(db), logger, core.NewTestConfig(loc)),
		out:        &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown flag", args: []string{"promote", "-lol"}, wantErr: errHelp},
		{name: "import: no file", args: []string{"import"}, wantErr: errHelp},
		{name: "exportattendance: no from", args: []string{"exportattendance", "-file", "a.xlsx"}, wantErr: errHelp},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })

	var calls int
	migrateFunc = func(db *bolt.DB) error {
		calls++
		return nil
	}
	runCLITests(t, cli, out, []cliTest{
		{name: "migrate", args: []string{"migrate"}, wantOut: "Database up to date"},
	})
	assert.Equal(t, 1, calls)
}

func Test_commandLine_addStudent(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no LRN", args: []string{"addstudent", "-first", "Ana"}, wantErr: errHelp},
		{
			name:    "lenient sex and grade",
			args:    []string{"addstudent", "-lrn", "1001", "-first", "Ana", "-mi", "B", "-last", "Santos", "-sex", "f", "-grade", "Grade 7"},
			wantOut: "Student 1001 added: Santos, Ana B, grade 7",
		},
		{
			name:       "duplicate LRN",
			args:       []string{"addstudent", "-lrn", "1001", "-first", "Ana", "-last", "Santos", "-sex", "F", "-grade", "7"},
			wantErrStr: student.ErrLRNExists.Error(),
		},
		{
			name:       "invalid grade",
			args:       []string{"addstudent", "-lrn", "1002", "-first", "Ben", "-last", "Cruz", "-sex", "M", "-grade", "12"},
			wantErrStr: "grade",
		},
	})

	s, err := studentRepo.GetStudentByID(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, student.Female, s.Sex)
	assert.Equal(t, student.Grade7, s.Grade)
}

func Test_commandLine_deleteAllStudents(t *testing.T) {
	cli, out := setup(t)

	orig := confirmFunc
	t.Cleanup(func() { confirmFunc = orig })

	count := func() int {
		students, err := studentRepo.GetAllStudents(context.Background())
		require.NoError(t, err)
		return len(students)
	}
	testutil.CreateStudent(t, studentRepo, "1001", "Ana", "Santos", student.Female, student.Grade7)

	confirmFunc = func(string) (bool, error) { return false, nil }
	runCLITests(t, cli, out, []cliTest{
		{name: "declined", args: []string{"deleteallstudents"}, wantErr: errNotConfirmed},
	})
	assert.Equal(t, 1, count())

	confirmFunc = func(string) (bool, error) { return false, errors.New("stdin is not a terminal") }
	runCLITests(t, cli, out, []cliTest{
		{name: "no terminal", args: []string{"deleteallstudents"}, wantErrStr: "not a terminal"},
	})
	assert.Equal(t, 1, count())

	confirmFunc = func(string) (bool, error) { return true, nil }
	runCLITests(t, cli, out, []cliTest{
		{name: "confirmed", args: []string{"deleteallstudents"}, wantOut: "All students deleted"},
	})
	assert.Zero(t, count())

	testutil.CreateStudent(t, studentRepo, "1002", "Ben", "Cruz", student.Male, student.Grade8)
	confirmFunc = func(string) (bool, error) {
		t.Error("confirmation asked despite -yes")
		return false, nil
	}
	runCLITests(t, cli, out, []cliTest{
		{name: "-yes", args: []string{"deleteallstudents", "-yes"}, wantOut: "All students deleted"},
	})
	assert.Zero(t, count())
}

func Test_commandLine_promote(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, studentRepo, "1001", "Ana", "Santos", student.Female, student.Grade7)
	testutil.CreateStudent(t, studentRepo, "1002", "Ben", "Cruz", student.Male, student.Grade10)

	runCLITests(t, cli, out, []cliTest{
		{name: "not due", args: []string{"promote"}, wantOut: "Grade promotion not due (2024)"},
		{name: "forced", args: []string{"promote", "-force"}, wantOut: "Grade promotion 2024 done: 1 promoted, 1 graduated"},
	})

	s, err := studentRepo.GetStudentByID(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, student.Grade8, s.Grade)
	_, err = studentRepo.GetStudentByID(context.Background(), "1002")
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func Test_commandLine_transfer(t *testing.T) {
	cli, out := setup(t)
	dir := t.TempDir()
	path := func(name string) string { return filepath.Join(dir, name) }

	ana := testutil.CreateStudent(t, studentRepo, "1001", "Ana", "Santos", student.Female, student.Grade7)
	testutil.LogVisits(t, attendanceRepo, ana, core.NowFunc(), time.UTC, 2)

	runCLITests(t, cli, out, []cliTest{
		{name: "export JSON", args: []string{"export", "-file", path("students.json")}},
		{name: "export xlsx", args: []string{"export", "-file", path("students.xlsx")}},
		{name: "export unknown format", args: []string{"export", "-file", path("students.csv")}, wantErr: transfer.ErrUnknownFormat},
		{name: "export stats", args: []string{"exportstats", "-file", path("stats.xlsx")}},
		{name: "export attendance", args: []string{"exportattendance", "-from", "2024-03-15", "-file", path("attendance.xlsx")}},
		{
			name: "export attendance (no data)", args: []string{"exportattendance", "-from", "2024-01-01", "-file", path("empty.xlsx")},
			wantErr: attendance.ErrNoData,
		},
		{
			name: "import stats (not xlsx)", args: []string{"importstats", "-file", path("students.json")},
			wantErrStr: "daily stats must be a .xlsx file",
		},
		{name: "import missing file", args: []string{"import", "-file", path("nope.json")}, wantErr: os.ErrNotExist},
	})

	for _, name := range []string{"students.json", "students.xlsx", "stats.xlsx", "attendance.xlsx"} {
		assert.FileExists(t, path(name))
	}
	assert.NoFileExists(t, path("students.csv"))
	assert.NoFileExists(t, path("empty.xlsx"))

	// re-import into an empty DB
	require.NoError(t, studentRepo.DeleteAllStudents(context.Background()))
	require.NoError(t, attendanceRepo.PutDailyCounters(context.Background(), attendance.DailyCounter{Date: "2024-03-15"}))

	runCLITests(t, cli, out, []cliTest{
		{name: "import JSON", args: []string{"import", "-file", path("students.json")}, wantOut: "1 student(s) imported, 0 skipped"},
		{name: "import xlsx (duplicates)", args: []string{"import", "-file", path("students.xlsx")}, wantOut: "0 student(s) imported, 0 skipped"},
		{name: "import stats", args: []string{"importstats", "-file", path("stats.xlsx")}, wantOut: "1 daily stat(s) imported"},
	})

	s, err := studentRepo.GetStudentByID(context.Background(), "1001")
	require.NoError(t, err)
	assert.Zero(t, s.Attendance)

	c, err := attendanceRepo.GetDailyCounter(context.Background(), "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Grade7)
}
