package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core/lesson"
)

type reportApi struct {
	svc *lesson.Service
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{svc: deps.LessonSvc}
	g.GET("/reports/summary", api.summary)
}

// summary aggregates the lessons matching the same filters as GET /lessons.
func (api *reportApi) summary(ctx echo.Context) error {
	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to lesson.QueryFilter")
	}
	filter.Clean(api.svc.Location())

	sum, err := api.svc.Report(ctx.Request().Context(), &filter)
	if err != nil {
		return errors.Wrap(err, "summarizing lessons")
	}
	return ctx.JSON(http.StatusOK, sum)
}
