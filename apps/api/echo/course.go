package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	// catalogue
	cg := g.Group("/courses")
	cg.GET("", api.list)
	cg.GET("/:id", api.retrieve)

	// authoring
	ig := g.Group("/instructor/courses", with(auth, instructorMiddleware())...)
	ig.POST("", api.create)
	ig.GET("", api.listOwn)
	ig.PUT("/:id", api.update)
}

func (api *courseApi) list(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	courses, err := api.svc.ListPublished(ctx.Request().Context(), filter, queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetPublished(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), identity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) listOwn(ctx echo.Context) error {
	courses, err := api.svc.ListOwn(ctx.Request().Context(), identity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing own courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), identity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}
