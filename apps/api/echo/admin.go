package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/promotion"
	"github.com/trezcool/libkiosk/core/student"
)

type adminApi struct {
	job      *promotion.Job
	students *student.Service
	logger   core.Logger
}

func registerAdminAPI(g *echo.Group, job *promotion.Job, students *student.Service, logger core.Logger) {
	api := adminApi{job: job, students: students, logger: logger}

	ag := g.Group("/admin")
	ag.POST("/promotion", api.promote)
	ag.DELETE("/students", api.deleteAllStudents)
}

// Handlers

// promote runs the promotion if it is due, or right away with ?force=true.
func (api *adminApi) promote(ctx echo.Context) error {
	var force bool
	if val := ctx.QueryParam("force"); val != "" {
		var err error
		if force, err = strconv.ParseBool(val); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "force", Error: "must be a boolean"})
		}
	}

	run := api.job.Check
	if force {
		run = api.job.Force
	}
	res, err := run(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "running grade promotion")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) deleteAllStudents(ctx echo.Context) error {
	if err := api.students.DeleteAll(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "deleting all students")
	}
	api.logger.Warn("All students deleted", map[string]interface{}{"requestID": ctx.Response().Header().Get(echo.HeaderXRequestID)})
	return ctx.NoContent(http.StatusNoContent)
}
