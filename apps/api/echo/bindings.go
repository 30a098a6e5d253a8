package echoapi

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
)

const (
	orderingParam = "ordering"
	uploadField   = "file"
)

type Ordering struct {
	Orderings []core.Ordering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Orderings = core.ParseOrderings(val)
}

// intParam returns the non-negative integer query param `name`, or 0 when absent.
func intParam(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a non-negative integer"})
	}
	return n, nil
}

// upload returns the uploaded file: the `file` part of a multipart form, or else the raw body.
// The caller must close it.
func upload(ctx echo.Context) (io.ReadCloser, error) {
	req := ctx.Request()
	ct, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if !strings.HasPrefix(ct, "multipart/") {
		if req.Body == nil || req.Body == http.NoBody || req.ContentLength == 0 {
			return nil, errMissingUpload
		}
		return req.Body, nil
	}

	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, errMissingUpload
		}
		return nil, errors.Wrap(err, "reading upload")
	}
	f, err := fh.Open()
	return f, errors.Wrap(err, "opening upload")
}

// attachment sends data as a file download.
func attachment(ctx echo.Context, contentType, filename string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, contentType, data)
}
