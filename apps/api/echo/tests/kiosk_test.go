package tests

import (
	"context"
	"net/http"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/libkiosk/apps/api/echo"
	"github.com/trezcool/libkiosk/core/attendance"
)

func Test_kioskApi_greeting(t *testing.T) {
	runHTTPTests(t, []httpTest{
		{
			name: "morning", path: "/v1/kiosk/greeting", wantCode: http.StatusOK,
			wantData: marchallObj(t, GreetingResponse{Greeting: "Good Morning", Date: "2024-03-15"}),
		},
	})
}

func Test_kioskApi_checkIn(t *testing.T) {
	ana, _, _ := seed(t)
	checkIns := promtest.ToFloat64(metrics.CheckIns.WithLabelValues("7"))
	unknown := promtest.ToFloat64(metrics.UnknownLRNs)

	visited := ana
	visited.Attendance = 1
	want := attendance.CheckIn{
		Student: visited,
		Event: attendance.Event{
			ID:         1,
			StudentLRN: ana.LRN,
			Timestamp:  now,
			Grade:      ana.Grade,
			Sex:        ana.Sex,
		},
		Counter:  attendance.DailyCounter{Date: "2024-03-15", Grade7: 1},
		Greeting: "Good Morning",
	}

	runHTTPTests(t, []httpTest{
		{
			name: "blank LRN", method: http.MethodPost, path: "/v1/kiosk/checkin",
			body: []byte(`{"lrn": "  "}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"lrn": "this field is required"}`),
		},
		{
			name: "invalid LRN", method: http.MethodPost, path: "/v1/kiosk/checkin",
			body: []byte(`{"lrn": "10 01"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"lrn": "LRN may only contain letters, digits and dashes (max 32)"}`),
		},
		{
			name: "unknown LRN", method: http.MethodPost, path: "/v1/kiosk/checkin",
			body: []byte(`{"lrn": "9999"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Student with LRN 9999 not found!"}),
		},
		{
			name: "known LRN", method: http.MethodPost, path: "/v1/kiosk/checkin",
			body: []byte(`{"lrn": " 1001 "}`), wantCode: http.StatusCreated,
			wantData: marchallObj(t, want),
		},
	})

	// failed check-ins write nothing
	events, err := attendanceRepo.GetAllEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Equal(t, checkIns+1, promtest.ToFloat64(metrics.CheckIns.WithLabelValues("7")))
	assert.Equal(t, unknown+1, promtest.ToFloat64(metrics.UnknownLRNs))
}
