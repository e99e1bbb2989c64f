package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core/lesson"
)

type seriesApi struct {
	svc      *lesson.Service
	validate *validator.Validate
}

func registerSeriesAPI(g *echo.Group, deps ServerDeps) {
	api := seriesApi{svc: deps.LessonSvc, validate: deps.Validate}

	sg := g.Group("/series/:group_id")
	sg.GET("", api.retrieve)
	sg.PUT("", api.update)
	sg.DELETE("", api.destroy)
}

// Handlers

func (api *seriesApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Series(ctx.Request().Context(), ctx.Param("group_id"))
	if err != nil {
		return errors.Wrap(err, "getting series")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *seriesApi) update(ctx echo.Context) error {
	var data lesson.SeriesUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SeriesUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	affected, err := api.svc.UpdateSeries(ctx.Request().Context(), ctx.Param("group_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating series")
	}
	return ctx.JSON(http.StatusOK, AffectedResponse{Affected: affected})
}

// destroy deletes the whole series, or with `?from=` only the occurrences starting from that date or instant.
func (api *seriesApi) destroy(ctx echo.Context) error {
	var from lesson.Date
	if err := from.UnmarshalParam(ctx.QueryParam("from")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	rctx := ctx.Request().Context()
	groupID := ctx.Param("group_id")
	var (
		affected int
		err      error
	)
	if from.IsZero() {
		affected, err = api.svc.DeleteSeries(rctx, groupID)
	} else {
		affected, err = api.svc.DeleteFrom(rctx, groupID, from.StartIn(api.svc.Location()))
	}
	if err != nil {
		return errors.Wrap(err, "deleting series")
	}
	return ctx.JSON(http.StatusOK, AffectedResponse{Affected: affected})
}
