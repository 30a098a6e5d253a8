package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/libkiosk/apps/api/echo"
	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/live"
	"github.com/trezcool/libkiosk/services/logger"
	"github.com/trezcool/libkiosk/services/transfer"
	"github.com/trezcool/libkiosk/storage/database/inmem"
	"github.com/trezcool/libkiosk/tests"
)

var (
	db             *inmemdb.DB
	app            *Server
	hub            *live.Hub
	metrics        *Metrics
	logger         *logsvc.ConsoleLogger
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
	markerRepo     promotion.MarkerStore

	loc *time.Location
	now time.Time // Friday 10:00 in Manila
)

func TestMain(m *testing.M) {
	var err error
	if loc, err = time.LoadLocation("Asia/Manila"); err != nil {
		fmt.Printf("time.LoadLocation(): %v", err)
		os.Exit(1)
	}
	now = time.Date(2024, time.March, 15, 10, 0, 0, 0, loc)
	core.NowFunc = func() time.Time { return now }

	conf := core.NewTestConfig(loc)
	validate, translator := testutil.NewValidator()
	logger = logsvc.NewConsoleLogger(nil)

	// set up DB & repos
	db = inmemdb.Open()
	studentRepo = inmemdb.NewStudentRepository(db)
	attendanceRepo = inmemdb.NewAttendanceRepository(db)
	markerRepo = inmemdb.NewSettingsRepository(db)

	// set up services
	hub = live.NewHub(logger)
	ctx, stopHub := context.WithCancel(context.Background())
	go hub.Run(ctx)

	studentSvc := student.NewService(studentRepo, validate)
	attendanceSvc := attendance.NewService(attendanceRepo, studentRepo, validate, loc, hub)
	metrics = NewMetrics()
	job := promotion.NewJob(studentRepo, markerRepo, logger, conf)
	job.OnRun(metrics.ObservePromotion)

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		StudentSvc:     studentSvc,
		AttendanceSvc:  attendanceSvc,
		TransferSvc:    transfer.NewService(studentSvc, attendanceSvc, logger),
		PromotionJob:   job,
		Hub:            hub,
		Metrics:        metrics,
		DisableReqLogs: true,
	})

	// run tests
	code := m.Run()

	// clean up
	stopHub()
	if err = app.Close(); err != nil {
		fmt.Printf("app.Close(): %v", err)
		os.Exit(1)
	}

	os.Exit(code)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func serve(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, serve(method, tt.path, tt.body))
		})
	}
}

// seed resets the DB with three students.
func seed(t *testing.T) (student.Student, student.Student, student.Student) {
	db.Reset()
	ana := testutil.CreateStudent(t, studentRepo, "1001", "Ana", "Santos", student.Female, student.Grade7, "B")
	ben := testutil.CreateStudent(t, studentRepo, "1002", "Ben", "Cruz", student.Male, student.Grade8)
	cara := testutil.CreateStudent(t, studentRepo, "1003", "Cara", "Reyes", student.Female, student.Grade10)
	return ana, ben, cara
}
