package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/payment"
)

const callbackTokenHeader = "x-callback-token"

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc *payment.Service, validate *validator.Validate) {
	api := paymentApi{svc: svc, validate: validate}

	g.POST("/checkout/:courseId", api.checkout, auth...)
	g.GET("/me/purchases", api.purchases, auth...)

	// called by the payment provider
	g.POST("/payments/webhook", api.webhook)
}

func (api *paymentApi) checkout(ctx echo.Context) error {
	var data payment.CheckoutRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to CheckoutRequest")
		}
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.Checkout(ctx.Request().Context(), identity(ctx), ctx.Param("courseId"), data)
	if err != nil {
		if errors.Cause(err) == payment.ErrInvoiceFailed {
			return echo.NewHTTPError(http.StatusBadGateway, payment.ErrInvoiceFailed.Error())
		}
		return errors.Wrap(err, "checking out")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *paymentApi) purchases(ctx echo.Context) error {
	payments, err := api.svc.Purchases(ctx.Request().Context(), identity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing purchases")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) webhook(ctx echo.Context) error {
	var data payment.InvoiceCallback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InvoiceCallback")
	}

	token := ctx.Request().Header.Get(callbackTokenHeader)
	res, err := api.svc.HandleInvoiceCallback(ctx.Request().Context(), token, data)
	if err != nil {
		if errors.Cause(err) == payment.ErrInvalidCallbackToken {
			return errInvalidCallback
		}
		return errors.Wrap(err, "handling invoice callback")
	}
	return ctx.JSON(http.StatusOK, res)
}
