package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/services/transfer"
)

type transferApi struct {
	svc *transfer.Service
}

func registerTransferAPI(g *echo.Group, svc *transfer.Service) {
	api := transferApi{svc: svc}

	tg := g.Group("/transfer")
	tg.GET("/students.json", api.exportStudents(transfer.JSON))
	tg.POST("/students.json", api.importStudents(transfer.JSON))
	tg.GET("/students.xlsx", api.exportStudents(transfer.XLSX))
	tg.POST("/students.xlsx", api.importStudents(transfer.XLSX))
	tg.GET("/stats.xlsx", api.exportCounters)
	tg.POST("/stats.xlsx", api.importCounters)
}

type ImportCountersResponse struct {
	Imported int `json:"imported"`
}

// Handlers

func (api *transferApi) exportStudents(format transfer.Format) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var buf bytes.Buffer
		if err := api.svc.ExportStudents(ctx.Request().Context(), &buf, format); err != nil {
			return errors.Wrap(err, "exporting students")
		}
		return attachment(ctx, format.ContentType(), "students."+string(format), buf.Bytes())
	}
}

func (api *transferApi) importStudents(format transfer.Format) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		f, err := upload(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := api.svc.ImportStudents(ctx.Request().Context(), f, format)
		if err != nil {
			return errors.Wrap(err, "importing students")
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *transferApi) exportCounters(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.svc.ExportCounters(ctx.Request().Context(), &buf); err != nil {
		return errors.Wrap(err, "exporting daily stats")
	}
	return attachment(ctx, transfer.ContentTypeXLSX, "daily-stats.xlsx", buf.Bytes())
}

func (api *transferApi) importCounters(ctx echo.Context) error {
	f, err := upload(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := api.svc.ImportCounters(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "importing daily stats")
	}
	return ctx.JSON(http.StatusOK, ImportCountersResponse{Imported: n})
}
