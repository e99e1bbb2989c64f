package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core/lesson"
)

const ctxLessonKey = "lesson"

var errLessonNotFoundInCtx = errors.New("lesson object not found in echo.Context")

// lessonCtxMiddleware loads the lesson named by the `:id` path param into the context.
func lessonCtxMiddleware(svc *lesson.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			l, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == lesson.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "getting lesson")
			}
			ctx.Set(ctxLessonKey, l)
			return next(ctx)
		}
	}
}

func getContextLesson(ctx echo.Context) (lesson.Lesson, error) {
	l, ok := ctx.Get(ctxLessonKey).(lesson.Lesson)
	if !ok {
		return lesson.Lesson{}, errLessonNotFoundInCtx
	}
	return l, nil
}
