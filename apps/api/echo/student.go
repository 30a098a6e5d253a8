package echoapi

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/student"
	"github.com/trezcool/libkiosk/services/qrcard"
)

type studentApi struct {
	svc      *student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, svc *student.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.DELETE("", api.destroyMultiple)

	// detail endpoints
	sg.GET("/:lrn", api.retrieve)
	sg.PUT("/:lrn", api.update)
	sg.DELETE("/:lrn", api.destroy)
	sg.GET("/:lrn/qr", api.qrCard)
}

type DestroyMultipleRequest struct {
	LRNs []string `query:"lrn"`
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByLRN(ctx.Request().Context(), ctx.Param("lrn"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

// update is a no-op for unknown LRNs.
func (api *studentApi) update(ctx echo.Context) error {
	c := ctx.Request().Context()
	lrn := ctx.Param("lrn")

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	orig, found, err := api.svc.Find(c, lrn)
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	if !found {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}
	if err := api.svc.Update(c, lrn, data); err != nil {
		return errors.Wrap(err, "updating student")
	}

	s, err := api.svc.GetByLRN(c, lrn)
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("lrn")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.LRNs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.LRNs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) qrCard(ctx echo.Context) error {
	size, err := intParam(ctx, "size")
	if err != nil {
		return err
	}
	s, err := api.svc.GetByLRN(ctx.Request().Context(), ctx.Param("lrn"))
	if err != nil {
		return errors.Wrap(err, "retrieving student")
	}

	var buf bytes.Buffer
	if err := qrcard.Render(&buf, s, size); err != nil {
		if err == qrcard.ErrInvalidSize {
			return core.NewValidationError(nil, core.FieldError{Field: "size", Error: err.Error()})
		}
		return errors.Wrap(err, "rendering QR card")
	}
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}
