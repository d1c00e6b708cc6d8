package payment

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("payment not found")
	ErrAlreadyEnrolled      = core.NewValidationError(errors.New("you are already enrolled in this course"))
	ErrInvalidCallbackToken = errors.New("invalid callback token")
	ErrInvoiceFailed        = errors.New("failed to create invoice")
	errMissingInvoiceID     = core.NewValidationError(errors.New("missing invoice id"), core.FieldError{Field: "id", Error: "this field is required"})
	errInvoiceIDTooLong     = core.NewValidationError(
		errors.New("invoice id too long"),
		core.FieldError{Field: "id", Error: fmt.Sprintf("ensure this field has no more than %d characters", maxInvoiceIDLen)},
	)
	errStatusTooLong = core.NewValidationError(
		errors.New("invoice status too long"),
		core.FieldError{Field: "status", Error: fmt.Sprintf("ensure this field has no more than %d characters", maxStatusLen)},
	)
)

const (
	// webhook_events.id is varchar(255); the key prefix plus both bounds stays below it.
	maxInvoiceIDLen = 100
	maxStatusLen    = 30

	// claimTTL bounds how long an in-flight callback blocks its redeliveries.
	claimTTL = time.Minute
	// storeTimeout bounds idempotency store calls made after the request ctx may be done.
	storeTimeout = 5 * time.Second
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, filter GetFilter) (Payment, error)
		// QueryPayments returns payments with their course titles, newest first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
		// TransitionStatus sets the status of the payment with the given reference.
		// Paid payments are final; changed reports whether the row was updated.
		TransitionStatus(ctx context.Context, reference, status string) (p Payment, changed bool, err error)
		// ExpirePending marks pending payments created before `before` as expired.
		ExpirePending(ctx context.Context, before time.Time) (int, error)
		// RecordWebhookEvent durably records a processed callback; it returns false if key was already recorded.
		RecordWebhookEvent(ctx context.Context, key string) (bool, error)
	}

	// InvoiceProvider creates hosted invoices the learner pays on.
	InvoiceProvider interface {
		CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	}

	// IdempotencyStore claims keys for a limited time; Claim returns false if key is already claimed.
	// Extend sets the expiry of key to ttl from now, claiming it if needed.
	IdempotencyStore interface {
		Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
		Extend(ctx context.Context, key string, ttl time.Duration) error
		Release(ctx context.Context, key string) error
	}

	CourseStore interface {
		GetCourse(ctx context.Context, id string, withOutline bool) (course.Course, error)
		IncrementStudentsCount(ctx context.Context, id string, delta int) error
	}

	Enroller interface {
		GetEnrollment(ctx context.Context, userID, courseID string) (learning.Enrollment, error)
		CreateEnrollment(ctx context.Context, e learning.Enrollment) (learning.Enrollment, bool, error)
	}

	UserReader interface {
		GetUser(ctx context.Context, filter user.GetFilter) (user.User, error)
	}

	ServiceDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		Repo        Repository
		Courses     CourseStore
		Enrollments Enroller
		Users       UserReader
		Invoices    InvoiceProvider
		Idempotency IdempotencyStore
		MailSvc     core.EmailService
		Tx          core.TxRunner
	}

	Service struct {
		ServiceDeps
		nowFunc func() time.Time
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{ServiceDeps: deps, nowFunc: time.Now}
}

// Checkout starts the purchase of a published course: a pending payment is recorded and an
// invoice is requested from the provider. Free courses are enrolled into right away.
func (svc *Service) Checkout(ctx context.Context, actor core.Identity, courseID string, req CheckoutRequest) (CheckoutResult, error) {
	c, err := svc.Courses.GetCourse(ctx, courseID, false)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !c.IsPublished {
		return CheckoutResult{}, course.ErrNotFound
	}

	_, err = svc.Enrollments.GetEnrollment(ctx, actor.UserID, courseID)
	if err == nil {
		return CheckoutResult{}, ErrAlreadyEnrolled
	} else if errors.Cause(err) != learning.ErrEnrollmentNotFound {
		return CheckoutResult{}, errors.Wrap(err, "getting enrollment")
	}

	now := svc.nowFunc().UTC()
	amount := core.RoundCents(c.Price * (1 + svc.Conf.Payment.TaxRate))
	if amount <= 0 {
		return svc.checkoutFree(ctx, actor, c, now)
	}

	method := core.CleanString(req.PaymentMethod, true /* lower */)
	if method == "" {
		method = MethodInvoice
	}
	p, err := svc.Repo.CreatePayment(ctx, Payment{
		UserID:    actor.UserID,
		CourseID:  courseID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		Reference: fmt.Sprintf("PAY-%d-%s", now.UnixNano()/int64(time.Millisecond), uuid.New().String()[:8]),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return CheckoutResult{}, errors.Wrap(err, "creating payment")
	}

	inv, err := svc.Invoices.CreateInvoice(ctx, svc.invoiceRequest(actor, c, amount, now))
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("creating invoice: %v", err), err, actor)
		p.Status = StatusFailed
		p.UpdatedAt = svc.nowFunc().UTC()
		if _, uErr := svc.Repo.UpdatePayment(ctx, p); uErr != nil {
			return CheckoutResult{}, errors.Wrap(uErr, "marking payment as failed")
		}
		return CheckoutResult{}, ErrInvoiceFailed
	}

	p.Reference = inv.ID
	p.UpdatedAt = svc.nowFunc().UTC()
	if p, err = svc.Repo.UpdatePayment(ctx, p); err != nil {
		return CheckoutResult{}, errors.Wrap(err, "saving invoice reference")
	}
	p.CourseTitle = c.Title
	return CheckoutResult{Payment: p, InvoiceURL: inv.InvoiceURL}, nil
}

func (svc *Service) invoiceRequest(actor core.Identity, c course.Course, amount float64, now time.Time) InvoiceRequest {
	base := svc.Conf.FrontendBaseURL + "/payment/"
	query := "?courseId=" + url.QueryEscape(c.ID)
	return InvoiceRequest{
		ExternalID:         fmt.Sprintf("course-%s-%s-%d", c.ID, actor.UserID, now.UnixNano()/int64(time.Millisecond)),
		Amount:             amount,
		PayerEmail:         actor.Email,
		Description:        "Payment for " + c.Title,
		Currency:           svc.Conf.Xendit.Currency,
		SuccessRedirectURL: base + "success" + query,
		FailureRedirectURL: base + "failed" + query,
		Items: []InvoiceItem{
			{Name: c.Title, Quantity: 1, Price: amount, Category: invoiceCategory},
		},
	}
}

func (svc *Service) checkoutFree(ctx context.Context, actor core.Identity, c course.Course, now time.Time) (CheckoutResult, error) {
	var res CheckoutResult
	err := svc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := svc.Repo.CreatePayment(ctx, Payment{
			UserID:    actor.UserID,
			CourseID:  c.ID,
			Amount:    0,
			Method:    MethodFree,
			Status:    StatusPaid,
			Reference: "FREE-" + uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "creating payment")
		}
		enrolled, err := svc.enroll(ctx, p)
		if err != nil {
			return err
		}
		p.CourseTitle = c.Title
		res = CheckoutResult{Payment: p, Enrolled: enrolled}
		return nil
	})
	return res, err
}

// enroll enrolls the payer of p and bumps the course students count when a new enrollment was made.
func (svc *Service) enroll(ctx context.Context, p Payment) (bool, error) {
	now := svc.nowFunc().UTC()
	_, created, err := svc.Enrollments.CreateEnrollment(ctx, learning.Enrollment{
		UserID:    p.UserID,
		CourseID:  p.CourseID,
		Progress:  0,
		Status:    learning.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return false, errors.Wrap(err, "creating enrollment")
	}
	if created {
		if err = svc.Courses.IncrementStudentsCount(ctx, p.CourseID, 1); err != nil {
			return false, errors.Wrap(err, "incrementing students count")
		}
	}
	return created, nil
}

// HandleInvoiceCallback applies an invoice status change sent by the provider.
// Each (invoice, status) callback is processed at most once; redeliveries are reported as duplicates.
func (svc *Service) HandleInvoiceCallback(ctx context.Context, token string, cb InvoiceCallback) (CallbackResult, error) {
	expected := svc.Conf.Xendit.CallbackToken
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return CallbackResult{}, ErrInvalidCallbackToken
	}
	cb.ID = core.CleanString(cb.ID)
	if cb.ID == "" {
		return CallbackResult{}, errMissingInvoiceID
	}
	if len(cb.ID) > maxInvoiceIDLen {
		return CallbackResult{}, errInvoiceIDTooLong
	}

	status := cb.NormalizedStatus()
	if len(status) > maxStatusLen {
		return CallbackResult{}, errStatusTooLong
	}
	res := CallbackResult{Status: status}
	key := "xendit:invoice:" + cb.ID + ":" + status

	// The Redis claim only fences concurrent deliveries; webhook_events is the record of
	// processed callbacks. The claim is short-lived until the transaction commits.
	claimed, err := svc.Idempotency.Claim(ctx, key, claimTTL)
	if err != nil {
		svc.Logger.Warn(fmt.Sprintf("claiming idempotency key: %v", err), err)
		claimed = true
	}
	if !claimed {
		res.Duplicate = true
		return res, nil
	}

	var p Payment
	err = svc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		recorded, err := svc.Repo.RecordWebhookEvent(ctx, key)
		if err != nil {
			return errors.Wrap(err, "recording webhook event")
		}
		if !recorded {
			res.Duplicate = true
			return nil
		}

		var changed bool
		p, changed, err = svc.Repo.TransitionStatus(ctx, cb.ID, status)
		if err != nil {
			return err
		}
		if changed && status == StatusPaid {
			if res.Enrolled, err = svc.enroll(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})

	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err != nil {
		if rErr := svc.Idempotency.Release(storeCtx, key); rErr != nil {
			svc.Logger.Warn(fmt.Sprintf("releasing idempotency key: %v", rErr), rErr)
		}
		return CallbackResult{}, err
	}
	if xErr := svc.Idempotency.Extend(storeCtx, key, svc.Conf.Payment.IdempotencyTTL); xErr != nil {
		svc.Logger.Warn(fmt.Sprintf("extending idempotency key: %v", xErr), xErr)
	}

	if res.Enrolled {
		svc.sendReceipt(ctx, p)
	}
	return res, nil
}

func (svc *Service) sendReceipt(ctx context.Context, p Payment) {
	usr, err := svc.Users.GetUser(ctx, user.GetFilter{ID: p.UserID})
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("getting payer: %v", err), err)
		return
	}
	c, err := svc.Courses.GetCourse(ctx, p.CourseID, false)
	if err != nil {
		svc.Logger.Error(fmt.Sprintf("getting purchased course: %v", err), err)
		return
	}
	svc.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Payment Receipt",
		TemplateName: "payment_receipt",
		TemplateData: struct {
			Name, CourseTitle, CourseID, Reference, Currency string
			Amount                                           float64
		}{
			Name:        usr.FullName,
			CourseTitle: c.Title,
			CourseID:    c.ID,
			Reference:   p.Reference,
			Currency:    svc.Conf.Xendit.Currency,
			Amount:      p.Amount,
		},
	})
}

// Purchases returns the caller's payments, newest first.
func (svc *Service) Purchases(ctx context.Context, actor core.Identity) ([]Payment, error) {
	return svc.Repo.QueryPayments(ctx, QueryFilter{UserID: actor.UserID})
}

// ExpireStale expires the pending payments older than the configured pending TTL.
func (svc *Service) ExpireStale(ctx context.Context) (int, error) {
	before := svc.nowFunc().UTC().Add(-svc.Conf.Payment.PendingTTL)
	n, err := svc.Repo.ExpirePending(ctx, before)
	if err != nil {
		return 0, errors.Wrap(err, "expiring pending payments")
	}
	return n, nil
}
