package invoicesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestClient(t *testing.T, handler http.HandlerFunc) *XenditClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := core.NewConfig()
	conf.Xendit.APIURL = srv.URL
	conf.Xendit.APIKey = "xnd_test_key"
	return NewXenditClient(conf, nopLogger{})
}

func TestCreateInvoice(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, invoicesPath, r.URL.Path)
		user, pwd, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "xnd_test_key", user)
		assert.Empty(t, pwd)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "inv-123",
			"external_id": "course-c1-u1-1700000000000",
			"status": "PENDING",
			"invoice_url": "https://checkout.xendit.co/web/inv-123",
			"amount": 55
		}`))
	})

	inv, err := c.CreateInvoice(context.Background(), payment.InvoiceRequest{
		ExternalID:  "course-c1-u1-1700000000000",
		Amount:      55,
		PayerEmail:  "amani@darasa.test",
		Description: "Payment for Go Basics",
		Currency:    "USD",
		Items:       []payment.InvoiceItem{{Name: "Go Basics", Quantity: 1, Price: 50, Category: "Course"}},
	})
	require.NoError(t, err)

	assert.Equal(t, payment.Invoice{
		ID:         "inv-123",
		ExternalID: "course-c1-u1-1700000000000",
		Status:     "PENDING",
		InvoiceURL: "https://checkout.xendit.co/web/inv-123",
		Amount:     55,
	}, inv)

	assert.Equal(t, "course-c1-u1-1700000000000", got["external_id"])
	assert.Equal(t, float64(55), got["amount"])
	assert.Equal(t, "USD", got["currency"])
	assert.Equal(t, "amani@darasa.test", got["payer_email"])
	assert.NotContains(t, got, "success_redirect_url")
	require.Len(t, got["items"], 1)
}

func TestCreateInvoice_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{
			name:   "api error",
			status: http.StatusBadRequest,
			body:   `{"error_code": "API_VALIDATION_ERROR", "message": "amount is invalid"}`,
			errMsg: "API_VALIDATION_ERROR",
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{}`,
			errMsg: "500",
		},
		{
			name:   "missing invoice url",
			status: http.StatusOK,
			body:   `{"id": "inv-1"}`,
			errMsg: "missing invoice url",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.CreateInvoice(context.Background(), payment.InvoiceRequest{ExternalID: "x", Amount: 10})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			_, withStack := err.(interface{ StackTrace() errors.StackTrace })
			assert.True(t, withStack, "provider errors carry a stack trace for rollbar")
		})
	}
}
