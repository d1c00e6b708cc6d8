package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc *analytics.Service) {
	api := analyticsApi{svc: svc}
	g.GET("/instructor/analytics", api.dashboard, with(auth, instructorMiddleware())...)
}

func bindAnalyticsOptions(ctx echo.Context) analytics.Options {
	opts := analytics.Options{}
	if err := ctx.Bind(&opts); err != nil {
		opts = analytics.Options{}
	}
	opts.Clean()
	return opts
}

func (api *analyticsApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.InstructorDashboard(ctx.Request().Context(), identity(ctx), bindAnalyticsOptions(ctx))
	if err != nil {
		return errors.Wrap(err, "building instructor dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
