package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/learning"
)

type learningApi struct {
	svc   *learning.Service
	certs *certificate.Service
}

func registerLearningAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc *learning.Service, certs *certificate.Service) {
	api := learningApi{svc: svc, certs: certs}

	mg := g.Group("/me", auth...)
	mg.GET("/enrollments", api.enrollments)
	mg.GET("/courses/:id", api.courseProgress)
	mg.GET("/courses/:id/lessons/:lessonId", api.lesson)
	mg.POST("/courses/:id/lessons/:lessonId/toggle", api.toggleLesson)
	mg.GET("/courses/:id/certificate", api.certificate)
	mg.POST("/courses/:id/certificate", api.issueCertificate)
}

func (api *learningApi) enrollments(ctx echo.Context) error {
	enrs, err := api.svc.ListEnrollments(ctx.Request().Context(), identity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrs == nil {
		enrs = []learning.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *learningApi) courseProgress(ctx echo.Context) error {
	cp, err := api.svc.CourseProgress(ctx.Request().Context(), identity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course progress")
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *learningApi) lesson(ctx echo.Context) error {
	view, err := api.svc.GetLesson(ctx.Request().Context(), identity(ctx), ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *learningApi) toggleLesson(ctx echo.Context) error {
	res, err := api.svc.ToggleLesson(ctx.Request().Context(), identity(ctx), ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "toggling lesson")
	}
	return ctx.JSON(http.StatusOK, res)
}

// certificate issues the caller's certificate of a completed course, or returns the existing one.
func (api *learningApi) certificate(ctx echo.Context) error {
	details, err := api.certs.Get(ctx.Request().Context(), identity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting certificate")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *learningApi) issueCertificate(ctx echo.Context) error {
	details, err := api.certs.Issue(ctx.Request().Context(), identity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing certificate")
	}
	return ctx.JSON(http.StatusOK, details)
}
