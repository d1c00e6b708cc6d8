package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type adminApi struct {
	users     *user.Service
	courses   *course.Service
	analytics *analytics.Service
	validate  *validator.Validate
}

func registerAdminAPI(
	g *echo.Group,
	auth []echo.MiddlewareFunc,
	users *user.Service,
	courses *course.Service,
	analyticsSvc *analytics.Service,
	validate *validator.Validate,
) {
	api := adminApi{users: users, courses: courses, analytics: analyticsSvc, validate: validate}

	ag := g.Group("/admin", with(auth, adminMiddleware())...)
	ag.GET("/overview", api.overview)

	ag.GET("/users", api.queryUsers)
	ag.PUT("/users/:id/role", api.changeRole)
	ag.DELETE("/users/:id", api.deleteUser)

	ag.GET("/courses", api.listCourses)
	ag.PUT("/courses/:id/publish", api.publishCourse)
	ag.DELETE("/courses/:id", api.deleteCourse)
}

type PublishCourseRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

func (api *adminApi) overview(ctx echo.Context) error {
	ov, err := api.analytics.AdminOverview(ctx.Request().Context(), identity(ctx), bindAnalyticsOptions(ctx))
	if err != nil {
		return errors.Wrap(err, "building admin overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	users, err := api.users.Query(ctx.Request().Context(), filter, queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) changeRole(ctx echo.Context) error {
	var data user.UpdateRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.users.ChangeRole(ctx.Request().Context(), identity(ctx), ctx.Param("id"), data.Role)
	if err != nil {
		return errors.Wrap(err, "changing user role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) deleteUser(ctx echo.Context) error {
	if err := api.users.Delete(ctx.Request().Context(), identity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) listCourses(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	courses, err := api.courses.ListAll(ctx.Request().Context(), identity(ctx), filter, queryOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing all courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) publishCourse(ctx echo.Context) error {
	var data PublishCourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishCourseRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	c, err := api.courses.SetPublished(ctx.Request().Context(), identity(ctx), ctx.Param("id"), *data.IsPublished)
	if err != nil {
		return errors.Wrap(err, "publishing course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) deleteCourse(ctx echo.Context) error {
	if err := api.courses.Delete(ctx.Request().Context(), identity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
