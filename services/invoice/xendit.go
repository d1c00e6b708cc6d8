package invoicesvc

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

const invoicesPath = "/v2/invoices"

type (
	invoiceBody struct {
		ExternalID         string                `json:"external_id"`
		Amount             float64               `json:"amount"`
		PayerEmail         string                `json:"payer_email,omitempty"`
		Description        string                `json:"description,omitempty"`
		Currency           string                `json:"currency,omitempty"`
		SuccessRedirectURL string                `json:"success_redirect_url,omitempty"`
		FailureRedirectURL string                `json:"failure_redirect_url,omitempty"`
		Items              []payment.InvoiceItem `json:"items,omitempty"`
	}

	invoiceResponse struct {
		ID         string  `json:"id"`
		ExternalID string  `json:"external_id"`
		Status     string  `json:"status"`
		InvoiceURL string  `json:"invoice_url"`
		Amount     float64 `json:"amount"`
	}

	apiError struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
)

// XenditClient creates hosted invoices through the Xendit REST API.
type XenditClient struct {
	client *resty.Client
	logger core.Logger
}

var _ payment.InvoiceProvider = (*XenditClient)(nil)

func NewXenditClient(conf *core.Config, logger core.Logger) *XenditClient {
	client := resty.New().
		SetBaseURL(conf.Xendit.APIURL).
		SetBasicAuth(conf.Xendit.APIKey, "").
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	return &XenditClient{client: client, logger: logger}
}

func (c *XenditClient) CreateInvoice(ctx context.Context, req payment.InvoiceRequest) (payment.Invoice, error) {
	var (
		result invoiceResponse
		apiErr apiError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(invoiceBody{
			ExternalID:         req.ExternalID,
			Amount:             req.Amount,
			PayerEmail:         req.PayerEmail,
			Description:        req.Description,
			Currency:           req.Currency,
			SuccessRedirectURL: req.SuccessRedirectURL,
			FailureRedirectURL: req.FailureRedirectURL,
			Items:              req.Items,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(invoicesPath)
	if err != nil {
		return payment.Invoice{}, errors.Wrap(err, "requesting invoice")
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		err = errors.Errorf("xendit api error: %d %s %s", resp.StatusCode(), apiErr.ErrorCode, apiErr.Message)
		c.logger.Error(err.Error(), map[string]interface{}{"external_id": req.ExternalID})
		return payment.Invoice{}, err
	}
	if result.InvoiceURL == "" {
		return payment.Invoice{}, errors.New("xendit api error: missing invoice url")
	}

	return payment.Invoice{
		ID:         result.ID,
		ExternalID: result.ExternalID,
		Status:     result.Status,
		InvoiceURL: result.InvoiceURL,
		Amount:     result.Amount,
	}, nil
}
