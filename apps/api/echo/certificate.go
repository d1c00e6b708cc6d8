package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/certificate"
)

var errCertificateIDRequired = core.NewValidationError(
	errors.New("certificate ID is required"),
	core.FieldError{Field: "certificate_id", Error: "this field is required"},
)

type certificateApi struct {
	svc *certificate.Service
}

func registerCertificateAPI(g *echo.Group, svc *certificate.Service) {
	api := certificateApi{svc: svc}
	g.POST("/certificates/verify", api.verify)
}

type (
	VerifyCertificateRequest struct {
		CertificateID string `json:"certificate_id"`
	}

	InvalidCertificateResponse struct {
		IsValid bool   `json:"is_valid"`
		Error   string `json:"error"`
	}
)

func (api *certificateApi) verify(ctx echo.Context) error {
	var data VerifyCertificateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyCertificateRequest")
	}
	data.CertificateID = core.CleanString(data.CertificateID)
	if data.CertificateID == "" {
		return errCertificateIDRequired
	}

	details, err := api.svc.Verify(ctx.Request().Context(), data.CertificateID)
	if err != nil {
		var code int
		switch errors.Cause(err) {
		case certificate.ErrInvalidFormat, certificate.ErrNotCompleted:
			code = http.StatusBadRequest
		case certificate.ErrNotFound:
			code = http.StatusNotFound
		default:
			return errors.Wrap(err, "verifying certificate")
		}
		return ctx.JSON(code, InvalidCertificateResponse{IsValid: false, Error: errors.Cause(err).Error()})
	}
	return ctx.JSON(http.StatusOK, details)
}
