package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/notification"
)

type lessonApi struct {
	svc      *lesson.Service
	notifier *notification.Service
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, deps ServerDeps) {
	api := lessonApi{
		svc:      deps.LessonSvc,
		notifier: deps.Notifier,
		conf:     deps.Conf,
		logger:   deps.Logger,
		validate: deps.Validate,
	}

	lg := g.Group("/lessons")
	lg.GET("", api.query)
	lg.POST("", api.create)

	// detail endpoints
	dg := lg.Group("/:id", lessonCtxMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	lessons, err := api.svc.Schedule(rctx, data)
	var batchErr *lesson.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		return errors.Wrap(err, "scheduling lessons")
	}

	if api.conf.Lessons.NotifyOnSchedule && len(lessons) > 0 {
		if _, nErr := api.notifier.LessonsScheduled(rctx, lessons); nErr != nil {
			api.logger.Error(fmt.Sprintf("notifying scheduled lessons: %v", nErr), nErr)
		}
	}

	code := http.StatusCreated
	if batchErr != nil {
		code = http.StatusMultiStatus
	}

	if data.Recurrence == nil {
		if len(lessons) == 0 {
			return err
		}
		return ctx.JSON(code, echo.Map{"id": lessons[0].ID})
	}

	resp := echo.Map{"group_id": "", "ids": lessonIDs(lessons)}
	if len(lessons) > 0 {
		resp["group_id"] = lessons[0].GroupID()
	}
	if batchErr != nil {
		resp["failures"] = batchFailures(batchErr)
	}
	return ctx.JSON(code, resp)
}

func (api *lessonApi) query(ctx echo.Context) error {
	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to lesson.QueryFilter")
	}
	filter.Clean(api.svc.Location())
	var ord Ordering
	ord.Bind(ctx)

	lessons, err := api.svc.Query(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) update(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context lesson")
	}

	var data lesson.OccurrenceUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OccurrenceUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	l, err = api.svc.UpdateOccurrence(ctx.Request().Context(), l.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context lesson")
	}

	var scope DeleteScope
	if err = scope.Bind(ctx); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	var affected int
	switch scope.Scope {
	case scopeFollowing:
		affected, err = api.svc.DeleteFollowing(rctx, l.ID)
	case scopeSeries:
		affected, err = api.svc.DeleteSeriesOf(rctx, l.ID)
	default:
		affected, err = api.svc.DeleteOccurrence(rctx, l.ID)
	}
	if err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return ctx.JSON(http.StatusOK, AffectedResponse{Affected: affected})
}

func lessonIDs(lessons []lesson.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}
