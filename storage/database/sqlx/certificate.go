package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/storage/database"
)

const certificateColumns = "id, code, course_id, user_id, issued_at, completed_at"

type certificateRow struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	CourseID    string    `db:"course_id"`
	UserID      string    `db:"user_id"`
	IssuedAt    time.Time `db:"issued_at"`
	CompletedAt time.Time `db:"completed_at"`
}

func (r certificateRow) certificate() certificate.Certificate {
	return certificate.Certificate{
		ID:          r.ID,
		Code:        r.Code,
		CourseID:    r.CourseID,
		UserID:      r.UserID,
		IssuedAt:    r.IssuedAt.UTC(),
		CompletedAt: r.CompletedAt.UTC(),
	}
}

type certificateRepository struct {
	db *sqlx.DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *sqlx.DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo certificateRepository) GetCertificate(ctx context.Context, filter certificate.GetFilter) (certificate.Certificate, error) {
	q := "SELECT " + certificateColumns + " FROM certificates WHERE "
	var args []interface{}
	switch {
	case filter.Code != "":
		q += "code = $1"
		args = append(args, filter.Code)
	case filter.CourseID != "" && filter.UserID != "":
		q += "course_id::text = $1 AND user_id::text = $2"
		args = append(args, filter.CourseID, filter.UserID)
	default:
		return certificate.Certificate{}, certificate.ErrNotFound
	}

	var row certificateRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q, args...); err != nil {
		return certificate.Certificate{}, trapNoRowsErr(err, certificate.ErrNotFound, "getting certificate")
	}
	return row.certificate(), nil
}

func (repo certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	q := `INSERT INTO certificates (code, course_id, user_id, issued_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + certificateColumns
	var row certificateRow
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q,
		cert.Code, cert.CourseID, cert.UserID, cert.IssuedAt.UTC(), cert.CompletedAt.UTC())
	switch {
	case database.IsUniqueViolation(err, "certificates_code_key"):
		return certificate.Certificate{}, certificate.ErrCodeTaken
	case database.IsUniqueViolation(err, "certificates_course_id_user_id_key"):
		return certificate.Certificate{}, certificate.ErrAlreadyIssued
	case err != nil:
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return row.certificate(), nil
}
