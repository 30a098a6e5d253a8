package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
	"github.com/trezcool/libkiosk/services/transfer"
)

type attendanceApi struct {
	svc      *attendance.Service
	transfer *transfer.Service
	validate *validator.Validate
}

func registerAttendanceAPI(
	g *echo.Group,
	svc *attendance.Service,
	transferSvc *transfer.Service,
	validate *validator.Validate,
) {
	api := attendanceApi{svc: svc, transfer: transferSvc, validate: validate}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.GET("/today", api.today)
	ag.GET("/export.xlsx", api.export)
}

// bindDateQuery binds ?date= or ?from=&to= and returns the inclusive range of local dates.
// Without parameters, the range is today.
func (api *attendanceApi) bindDateQuery(ctx echo.Context) (string, string, error) {
	var query attendance.DateQuery
	if err := ctx.Bind(&query); err != nil {
		return "", "", errors.Wrap(err, "binding to DateQuery")
	}
	if err := api.validate.Struct(query); err != nil {
		return "", "", err
	}

	switch {
	case query.From != "":
		if query.To == "" {
			return query.From, query.From, nil
		}
		return query.From, query.To, nil
	case query.Date != "":
		return query.Date, query.Date, nil
	}
	today := core.Today(api.svc.Location())
	return today, today, nil
}

// Handlers

func (api *attendanceApi) today(ctx echo.Context) error {
	events, err := api.svc.TodaysEvents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying today's events")
	}
	attendance.SortByTime(events)
	return ctx.JSON(http.StatusOK, nonNil(events))
}

func (api *attendanceApi) query(ctx echo.Context) error {
	from, to, err := api.bindDateQuery(ctx)
	if err != nil {
		return err
	}
	events, err := api.svc.EventsBetween(ctx.Request().Context(), from, to)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, nonNil(events))
}

func (api *attendanceApi) export(ctx echo.Context) error {
	from, to, err := api.bindDateQuery(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := api.transfer.ExportAttendance(ctx.Request().Context(), &buf, from, to); err != nil {
		return errors.Wrap(err, "exporting attendance")
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", from)
	if from != to {
		filename = fmt.Sprintf("attendance-range-%s-to-%s.xlsx", from, to)
	}
	return attachment(ctx, transfer.ContentTypeXLSX, filename, buf.Bytes())
}

func nonNil(events []attendance.Event) []attendance.Event {
	if events == nil {
		return []attendance.Event{}
	}
	return events
}
