package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/core/stats"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/chart"
	"github.com/trezcool/libkiosk/services/live"
)

type statsApi struct {
	attendance *attendance.Service
	students   *student.Service
	hub        *live.Hub
	title      string
}

func registerStatsAPI(
	g *echo.Group,
	attendanceSvc *attendance.Service,
	studentSvc *student.Service,
	hub *live.Hub,
	title string,
) {
	api := statsApi{attendance: attendanceSvc, students: studentSvc, hub: hub, title: title}

	sg := g.Group("/stats")
	sg.GET("/today", api.today)
	sg.GET("/gender", api.gender)
	sg.GET("/top-visitors", api.topVisitors)
	sg.GET("/recent", api.recent)
	sg.GET("/trend", api.trend)
	sg.GET("/grades", api.grades)
	sg.GET("/dashboard.png", api.dashboard)
	if hub != nil {
		sg.GET("/live", api.live)
	}
}

type TodayResponse struct {
	Counter  attendance.DailyCounter `json:"counter"`
	Total    int                     `json:"total"`
	Snapshot stats.Snapshot          `json:"snapshot"`
}

func (api *statsApi) snapshot(ctx echo.Context) ([]attendance.Event, []student.Student, error) {
	c := ctx.Request().Context()
	events, err := api.attendance.AllEvents(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying events")
	}
	students, err := api.students.QueryAll(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying students")
	}
	return events, students, nil
}

// Handlers

func (api *statsApi) today(ctx echo.Context) error {
	c := ctx.Request().Context()
	counter, err := api.attendance.TodaysCounter(c)
	if err != nil {
		return errors.Wrap(err, "getting today's counter")
	}
	events, err := api.attendance.TodaysEvents(c)
	if err != nil {
		return errors.Wrap(err, "querying today's events")
	}
	return ctx.JSON(http.StatusOK, TodayResponse{
		Counter:  counter,
		Total:    counter.Total(),
		Snapshot: stats.TodaysSnapshot(events, core.NowFunc(), api.attendance.Location()),
	})
}

func (api *statsApi) gender(ctx echo.Context) error {
	period, err := stats.ParsePeriod(ctx.QueryParam("period"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: err.Error()})
	}
	events, students, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	b := stats.GenderBreakdownForPeriod(events, students, period, core.NowFunc(), api.attendance.Location())
	return ctx.JSON(http.StatusOK, b)
}

func (api *statsApi) topVisitors(ctx echo.Context) error {
	limit, err := intParam(ctx, "limit")
	if err != nil {
		return err
	}
	events, students, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	top := stats.TopVisitorsForMonth(events, students, limit, core.NowFunc(), api.attendance.Location())
	if top == nil {
		top = []stats.TopVisitor{}
	}
	return ctx.JSON(http.StatusOK, top)
}

func (api *statsApi) recent(ctx echo.Context) error {
	limit, err := intParam(ctx, "limit")
	if err != nil {
		return err
	}
	events, students, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	recent := stats.RecentVisitors(events, students, limit, core.NowFunc(), api.attendance.Location())
	if recent == nil {
		recent = []stats.RecentVisitor{}
	}
	return ctx.JSON(http.StatusOK, recent)
}

func (api *statsApi) trend(ctx echo.Context) error {
	counters, err := api.attendance.DailyCounters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying daily counters")
	}
	trend := stats.DailyTrend(counters)
	if trend == nil {
		trend = []stats.TrendPoint{}
	}
	return ctx.JSON(http.StatusOK, trend)
}

func (api *statsApi) grades(ctx echo.Context) error {
	events, students, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats.VisitsPerGrade(events, students))
}

func (api *statsApi) dashboard(ctx echo.Context) error {
	period, err := stats.ParsePeriod(ctx.QueryParam("period"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: err.Error()})
	}
	counters, err := api.attendance.DailyCounters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying daily counters")
	}
	events, students, err := api.snapshot(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = chart.Render(&buf, chart.Dashboard{
		Title:     api.title,
		Trend:     stats.DailyTrend(counters),
		Breakdown: stats.GenderBreakdownForPeriod(events, students, period, core.NowFunc(), api.attendance.Location()),
	})
	if err != nil {
		return errors.Wrap(err, "rendering dashboard")
	}
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// live streams today's counter: first its current value, then after every check-in.
func (api *statsApi) live(ctx echo.Context) error {
	counter, err := api.attendance.TodaysCounter(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting today's counter")
	}
	if err := api.hub.Serve(ctx.Response(), ctx.Request(), live.NewCounterMessage(counter)); err != nil {
		if ctx.Response().Committed { // upgraded or rejected already
			ctx.Logger().Warn(err)
			return nil
		}
		return errors.Wrap(err, "serving live stats")
	}
	return nil
}
