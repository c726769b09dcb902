package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
)

var uploadField = "file"

func (s *server) registerFileAPI(api *echo.Group) {
	api.POST("/upload", s.upload, s.jwt)
	api.GET("/files/:name", s.serveFile)
}

func (s *server) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: uploadField, Error: "this field is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	f, err := s.Files.Save(ctx.Request().Context(), src)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (s *server) serveFile(ctx echo.Context) error {
	fp, err := s.Files.Path(ctx.Param("name"))
	if err != nil {
		return err
	}
	return ctx.File(fp)
}
