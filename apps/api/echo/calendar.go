package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/calendar"
	"github.com/trezcool/tutorly/core/lesson"
)

type calendarApi struct {
	svc     *lesson.Service
	cal     *calendar.Exporter
	appName string
}

func registerCalendarAPI(g *echo.Group, deps ServerDeps) {
	api := calendarApi{svc: deps.LessonSvc, cal: deps.Calendar, appName: deps.Conf.AppName}

	g.GET("/calendar.ics", api.feed)
	g.GET("/lessons/:id/calendar.ics", api.lesson, lessonCtxMiddleware(api.svc))
	g.GET("/series/:group_id/calendar.ics", api.series)
}

func (api *calendarApi) send(ctx echo.Context, filename, name string, lessons []lesson.Lesson) error {
	var buf bytes.Buffer
	if err := api.cal.Encode(&buf, name, lessons); err != nil {
		return errors.Wrap(err, "encoding calendar")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, calendar.ContentType, buf.Bytes())
}

// Handlers

// feed exports every lesson matching the query filters.
func (api *calendarApi) feed(ctx echo.Context) error {
	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to lesson.QueryFilter")
	}
	filter.Clean(api.svc.Location())

	lessons, err := api.svc.Query(ctx.Request().Context(), &filter, []core.DBOrdering{{Field: "start_time", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return api.send(ctx, "lessons.ics", api.appName+" lessons", lessons)
}

func (api *calendarApi) lesson(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context lesson")
	}
	return api.send(ctx, "lesson.ics", l.Title, []lesson.Lesson{l})
}

func (api *calendarApi) series(ctx echo.Context) error {
	s, err := api.svc.Series(ctx.Request().Context(), ctx.Param("group_id"))
	if err != nil {
		return errors.Wrap(err, "getting series")
	}
	return api.send(ctx, "series.ics", s.Title, s.Lessons)
}
