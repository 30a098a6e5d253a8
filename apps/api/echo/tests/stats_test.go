package tests

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/libkiosk/apps/api/echo"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/stats"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/chart"
	"github.com/trezcool/libkiosk/services/live"
	"github.com/trezcool/libkiosk/tests"
)

// seedVisits logs, in this order: Ben on Feb 20, Cara on Mar 1, Ben on Thursday Mar 14,
// then Ana at 08:00, Cara at 09:00 and Ana at 09:30 today.
func seedVisits(t *testing.T) (student.Student, student.Student, student.Student) {
	ana, ben, cara := seed(t)
	at := func(month time.Month, day, hour, minute int) time.Time {
		return time.Date(2024, month, day, hour, minute, 0, 0, loc)
	}
	testutil.LogVisits(t, attendanceRepo, ben, at(time.February, 20, 9, 0), loc, 1)
	testutil.LogVisits(t, attendanceRepo, cara, at(time.March, 1, 9, 0), loc, 1)
	testutil.LogVisits(t, attendanceRepo, ben, at(time.March, 14, 9, 0), loc, 1)
	testutil.LogVisits(t, attendanceRepo, ana, at(time.March, 15, 8, 0), loc, 1)
	testutil.LogVisits(t, attendanceRepo, cara, at(time.March, 15, 9, 0), loc, 1)
	testutil.LogVisits(t, attendanceRepo, ana, at(time.March, 15, 9, 30), loc, 1)
	return ana, ben, cara
}

func Test_statsApi(t *testing.T) {
	ana, ben, cara := seedVisits(t)

	breakdown := func(g7, g8, g10 stats.SexCount) stats.Breakdown {
		return stats.Breakdown{
			student.Grade7:  g7,
			student.Grade8:  g8,
			student.Grade9:  {},
			student.Grade10: g10,
		}
	}
	today := TodayResponse{
		Counter:  attendance.DailyCounter{Date: "2024-03-15", Grade7: 2, Grade10: 1},
		Total:    3,
		Snapshot: stats.Snapshot{Total: 3, Unique: 2},
	}
	recent := func(s student.Student, hour, minute int) stats.RecentVisitor {
		ts := time.Date(2024, time.March, 15, hour, minute, 0, 0, loc)
		return stats.RecentVisitor{
			LRN:       s.LRN,
			Name:      s.DisplayName(),
			Grade:     s.Grade,
			Time:      ts.Format(stats.TimeLayout),
			Timestamp: ts,
		}
	}
	top := func(s student.Student, visits int) stats.TopVisitor {
		return stats.TopVisitor{LRN: s.LRN, Name: s.DisplayName(), Grade: s.Grade, Visits: visits}
	}

	runHTTPTests(t, []httpTest{
		{name: "today", path: "/v1/stats/today", wantCode: http.StatusOK, wantData: marchallObj(t, today)},
		{
			name: "gender (default period)", path: "/v1/stats/gender", wantCode: http.StatusOK,
			wantData: marchallObj(t, breakdown(stats.SexCount{Female: 2}, stats.SexCount{}, stats.SexCount{Female: 1})),
		},
		{
			name: "gender week", path: "/v1/stats/gender?period=week", wantCode: http.StatusOK,
			wantData: marchallObj(t, breakdown(stats.SexCount{Female: 2}, stats.SexCount{Male: 1}, stats.SexCount{Female: 1})),
		},
		{
			name: "gender month", path: "/v1/stats/gender?period=Month", wantCode: http.StatusOK,
			wantData: marchallObj(t, breakdown(stats.SexCount{Female: 2}, stats.SexCount{Male: 1}, stats.SexCount{Female: 2})),
		},
		{
			name: "gender (invalid period)", path: "/v1/stats/gender?period=year", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"period": "period must be one of day, week, month"}`),
		},
		{
			name: "top visitors", path: "/v1/stats/top-visitors", wantCode: http.StatusOK,
			wantData: marchallList(t, top(cara, 2), top(ana, 2), top(ben, 1)),
		},
		{
			name: "top visitors (limit)", path: "/v1/stats/top-visitors?limit=1", wantCode: http.StatusOK,
			wantData: marchallList(t, top(cara, 2)),
		},
		{
			name: "top visitors (invalid limit)", path: "/v1/stats/top-visitors?limit=-1", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"limit": "must be a non-negative integer"}`),
		},
		{
			name: "recent", path: "/v1/stats/recent", wantCode: http.StatusOK,
			wantData: marchallList(t, recent(ana, 9, 30), recent(cara, 9, 0), recent(ana, 8, 0)),
		},
		{
			name: "recent (limit)", path: "/v1/stats/recent?limit=2", wantCode: http.StatusOK,
			wantData: marchallList(t, recent(ana, 9, 30), recent(cara, 9, 0)),
		},
		{
			name: "trend", path: "/v1/stats/trend", wantCode: http.StatusOK,
			wantData: marchallList(t,
				stats.TrendPoint{Date: "2024-02-20", Visits: 1},
				stats.TrendPoint{Date: "2024-03-01", Visits: 1},
				stats.TrendPoint{Date: "2024-03-14", Visits: 1},
				stats.TrendPoint{Date: "2024-03-15", Visits: 3},
			),
		},
		{
			name: "grades", path: "/v1/stats/grades", wantCode: http.StatusOK,
			wantData: []byte(`{"7": 2, "8": 2, "9": 0, "10": 2}`),
		},
	})
}

func Test_statsApi_deletedStudents(t *testing.T) {
	_, ben, _ := seedVisits(t)
	require.Equal(t, http.StatusNoContent, serve(http.MethodDelete, "/v1/students?lrn=1001&lrn=1003").Code)

	runHTTPTests(t, []httpTest{
		{
			name: "recent skips deleted students", path: "/v1/stats/recent", wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name: "top visitors skip deleted students", path: "/v1/stats/top-visitors", wantCode: http.StatusOK,
			wantData: marchallList(t, stats.TopVisitor{LRN: ben.LRN, Name: ben.DisplayName(), Grade: ben.Grade, Visits: 1}),
		},
		{
			name: "the counters keep every visit", path: "/v1/stats/today", wantCode: http.StatusOK,
			wantData: marchallObj(t, TodayResponse{
				Counter:  attendance.DailyCounter{Date: "2024-03-15", Grade7: 2, Grade10: 1},
				Total:    3,
				Snapshot: stats.Snapshot{Total: 3, Unique: 2},
			}),
		},
	})
}

func Test_statsApi_dashboard(t *testing.T) {
	seedVisits(t)

	rec := serve(http.MethodGet, "/v1/stats/dashboard.png?period=month")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, chart.Width, img.Bounds().Dx())
	assert.Equal(t, chart.Height, img.Bounds().Dy())

	rec = serve(http.MethodGet, "/v1/stats/dashboard.png?period=decade")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type counterMessage struct {
	Type    string              `json:"type"`
	Payload live.CounterPayload `json:"payload"`
}

func Test_statsApi_live(t *testing.T) {
	seedVisits(t)

	srv := httptest.NewServer(app)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/stats/live", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg counterMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, live.TypeDailyCounter, msg.Type)
	assert.Equal(t, attendance.DailyCounter{Date: "2024-03-15", Grade7: 2, Grade10: 1}, msg.Payload.DailyCounter)
	assert.Equal(t, 3, msg.Payload.Total)

	// every check-in is pushed
	require.Equal(t, http.StatusCreated, serve(http.MethodPost, "/v1/kiosk/checkin", []byte(`{"lrn": "1002"}`)).Code)

	msg = counterMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, attendance.DailyCounter{Date: "2024-03-15", Grade7: 2, Grade8: 1, Grade10: 1}, msg.Payload.DailyCounter)
	assert.Equal(t, 4, msg.Payload.Total)
}
