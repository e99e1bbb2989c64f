package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/student"
)

type studentApi struct {
	svc      *student.Service
	lessons  *lesson.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		svc:      deps.StudentSvc,
		lessons:  deps.LessonSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.GET("/:id/lessons", api.queryLessons)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to student.QueryFilter")
	}
	filter.Clean()
	var ord Ordering
	ord.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	stu, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) queryLessons(ctx echo.Context) error {
	stu, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	var filter lesson.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to lesson.QueryFilter")
	}
	filter.StudentID = stu.ID
	filter.Clean(api.lessons.Location())
	var ord Ordering
	ord.Bind(ctx)

	lessons, err := api.lessons.Query(ctx.Request().Context(), &filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}
