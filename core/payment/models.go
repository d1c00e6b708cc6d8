package payment

import (
	"strings"
	"time"
)

// Payment statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
	StatusFailed  = "failed"
)

const (
	MethodInvoice = "invoice"
	MethodFree    = "free"

	invoiceCategory = "EDUCATION"
)

type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title,omitempty"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"payment_method"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type GetFilter struct {
	ID        string
	Reference string
}

type QueryFilter struct {
	UserID string
	Status string
}

type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type InvoiceRequest struct {
	ExternalID         string
	Amount             float64
	PayerEmail         string
	Description        string
	Currency           string
	SuccessRedirectURL string
	FailureRedirectURL string
	Items              []InvoiceItem
}

type Invoice struct {
	ID         string
	ExternalID string
	Status     string
	InvoiceURL string
	Amount     float64
}

// InvoiceCallback is the payload posted by the invoicing provider when an invoice changes status.
type InvoiceCallback struct {
	ID            string  `json:"id"`
	ExternalID    string  `json:"external_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

// NormalizedStatus maps the provider invoice status to a payment status.
func (cb InvoiceCallback) NormalizedStatus() string {
	switch s := strings.ToUpper(strings.TrimSpace(cb.Status)); s {
	case "PAID", "SETTLED":
		return StatusPaid
	case "EXPIRED":
		return StatusExpired
	default:
		return strings.ToLower(s)
	}
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"max=50"`
}

type CheckoutResult struct {
	Payment    Payment `json:"payment"`
	InvoiceURL string  `json:"invoice_url"`
	Enrolled   bool    `json:"enrolled"`
}

type CallbackResult struct {
	Duplicate bool   `json:"duplicate"`
	Status    string `json:"status"`
	Enrolled  bool   `json:"enrolled"`
}
