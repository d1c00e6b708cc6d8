package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/payment"
)

const (
	paymentColumns = "id, user_id, course_id, amount, payment_method, status, reference, created_at, updated_at"
	paymentSelect  = `SELECT p.id, p.user_id, p.course_id, COALESCE(c.title, '') AS course_title, p.amount,
	p.payment_method, p.status, p.reference, p.created_at, p.updated_at
	FROM payments p LEFT JOIN courses c ON c.id = p.course_id`
)

type paymentRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	CourseID    string      `db:"course_id"`
	CourseTitle string      `db:"course_title"`
	Amount      float64     `db:"amount"`
	Method      string      `db:"payment_method"`
	Status      string      `db:"status"`
	Reference   null.String `db:"reference"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		CourseTitle: r.CourseTitle,
		Amount:      r.Amount,
		Method:      r.Method,
		Status:      r.Status,
		Reference:   r.Reference.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `INSERT INTO payments (user_id, course_id, amount, payment_method, status, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + paymentColumns
	var row paymentRow
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q,
		p.UserID, p.CourseID, p.Amount, p.Method, p.Status, nullString(p.Reference), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return row.payment(), nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `UPDATE payments SET amount = $2, payment_method = $3, status = $4, reference = $5, updated_at = $6
		WHERE id = $1
		RETURNING ` + paymentColumns
	var row paymentRow
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q,
		p.ID, p.Amount, p.Method, p.Status, nullString(p.Reference), p.UpdatedAt.UTC())
	if err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "updating payment")
	}
	return row.payment(), nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, filter payment.GetFilter) (payment.Payment, error) {
	q := paymentSelect + " WHERE "
	var arg string
	switch {
	case filter.ID != "":
		q += "p.id::text = $1"
		arg = filter.ID
	case filter.Reference != "":
		q += "p.reference = $1"
		arg = filter.Reference
	default:
		return payment.Payment{}, payment.ErrNotFound
	}

	var row paymentRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q, arg); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "getting payment")
	}
	return row.payment(), nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, "p.user_id::text = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "p.status = $"+strconv.Itoa(len(args)))
	}

	q := paymentSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY p.created_at DESC"

	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.payment())
	}
	return payments, nil
}

// TransitionStatus locks the payment row; paid payments are never changed.
func (repo paymentRepository) TransitionStatus(ctx context.Context, reference, status string) (payment.Payment, bool, error) {
	exec := getExec(ctx, repo.db)

	var current paymentRow
	q := "SELECT " + paymentColumns + " FROM payments WHERE reference = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, exec, &current, q, reference); err != nil {
		return payment.Payment{}, false, trapNoRowsErr(err, payment.ErrNotFound, "getting payment")
	}
	if current.Status == status || current.Status == payment.StatusPaid {
		return current.payment(), false, nil
	}

	q = `UPDATE payments SET status = $2, updated_at = now()
		WHERE reference = $1 AND status <> $2 AND status <> 'paid'
		RETURNING ` + paymentColumns
	var row paymentRow
	if err := sqlx.GetContext(ctx, exec, &row, q, reference, status); err != nil {
		return payment.Payment{}, false, trapNoRowsErr(err, payment.ErrNotFound, "updating payment status")
	}
	return row.payment(), true, nil
}

func (repo paymentRepository) ExpirePending(ctx context.Context, before time.Time) (int, error) {
	q := "UPDATE payments SET status = $1, updated_at = now() WHERE status = $2 AND created_at < $3"
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, payment.StatusExpired, payment.StatusPending, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "expiring payments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "expiring payments")
	}
	return int(n), nil
}

func (repo paymentRepository) RecordWebhookEvent(ctx context.Context, key string) (bool, error) {
	q := "INSERT INTO webhook_events (id, received_at) VALUES ($1, now()) ON CONFLICT (id) DO NOTHING"
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, key)
	if err != nil {
		return false, errors.Wrap(err, "recording webhook event")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "recording webhook event")
	}
	return n > 0, nil
}
