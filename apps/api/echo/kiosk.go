package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
)

type kioskApi struct {
	svc     *attendance.Service
	metrics *Metrics
}

func registerKioskAPI(g *echo.Group, svc *attendance.Service, metrics *Metrics) {
	api := kioskApi{svc: svc, metrics: metrics}

	kg := g.Group("/kiosk")
	kg.GET("/greeting", api.greeting)
	kg.POST("/checkin", api.checkIn)
}

type GreetingResponse struct {
	Greeting string `json:"greeting"`
	Date     string `json:"date"`
}

// Handlers

func (api *kioskApi) greeting(ctx echo.Context) error {
	now := core.NowFunc().In(api.svc.Location())
	return ctx.JSON(http.StatusOK, GreetingResponse{
		Greeting: attendance.Greeting(now),
		Date:     core.LocalDate(now, api.svc.Location()),
	})
}

func (api *kioskApi) checkIn(ctx echo.Context) error {
	var data attendance.CheckInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckInRequest")
	}

	res, err := api.svc.CheckIn(ctx.Request().Context(), data)
	if err != nil {
		if _, ok := errors.Cause(err).(*attendance.UnknownStudentError); ok {
			api.metrics.UnknownLRNs.Inc()
			return err
		}
		return errors.Wrap(err, "checking in")
	}
	api.metrics.CheckIns.WithLabelValues(string(res.Event.Grade)).Inc()
	return ctx.JSON(http.StatusCreated, res)
}
