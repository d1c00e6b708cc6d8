package boiledrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/darasa/core/analytics"
)

// scopeCond restricts a query to the courses of instructor $1; an empty $1 matches every course.
const scopeCond = "($1 = '' OR c.instructor_id::text = $1)"

type (
	courseRecordRow struct {
		ID            string    `boil:"id"`
		Title         string    `boil:"title"`
		InstructorID  string    `boil:"instructor_id"`
		Price         float64   `boil:"price"`
		StudentsCount int       `boil:"students_count"`
		IsPublished   bool      `boil:"is_published"`
		CreatedAt     time.Time `boil:"created_at"`
	}

	enrollmentRecordRow struct {
		UserID     string    `boil:"user_id"`
		CourseID   string    `boil:"course_id"`
		Progress   int       `boil:"progress"`
		EnrolledAt time.Time `boil:"enrolled_at"`
	}

	completionRecordRow struct {
		UserID      string    `boil:"user_id"`
		CourseID    string    `boil:"course_id"`
		CompletedAt time.Time `boil:"completed_at"`
	}

	paymentRecordRow struct {
		CourseID string    `boil:"course_id"`
		Amount   float64   `boil:"amount"`
		PaidAt   time.Time `boil:"paid_at"`
	}

	totalsRow struct {
		Users                int     `boil:"users"`
		Learners             int     `boil:"learners"`
		Instructors          int     `boil:"instructors"`
		Admins               int     `boil:"admins"`
		Courses              int     `boil:"courses"`
		PublishedCourses     int     `boil:"published_courses"`
		Enrollments          int     `boil:"enrollments"`
		CompletedEnrollments int     `boil:"completed_enrollments"`
		PaidPayments         int     `boil:"paid_payments"`
		PendingPayments      int     `boil:"pending_payments"`
		Revenue              float64 `boil:"revenue"`
	}
)

// analyticsReadModel loads the analytics rows with raw queries bound by sqlboiler.
type analyticsReadModel struct {
	db *sqlx.DB
}

var _ analytics.ReadModel = (*analyticsReadModel)(nil) // interface compliance check

func NewAnalyticsReadModel(db *sqlx.DB) *analyticsReadModel {
	return &analyticsReadModel{db: db}
}

func (rm analyticsReadModel) exec() boil.ContextExecutor {
	return rm.db.DB
}

func (rm analyticsReadModel) Courses(ctx context.Context, scope analytics.Scope) ([]analytics.CourseRecord, error) {
	q := `SELECT c.id, c.title, c.instructor_id, COALESCE(c.price, 0) AS price, c.students_count, c.is_published, c.created_at
		FROM courses c
		WHERE ` + scopeCond + `
		ORDER BY c.created_at`
	var rows []*courseRecordRow
	if err := queries.Raw(q, scope.InstructorID).Bind(ctx, rm.exec(), &rows); err != nil {
		return nil, errors.Wrap(err, "querying course records")
	}
	records := make([]analytics.CourseRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, analytics.CourseRecord(*r))
	}
	return records, nil
}

func (rm analyticsReadModel) Enrollments(ctx context.Context, scope analytics.Scope) ([]analytics.EnrollmentRecord, error) {
	q := `SELECT e.user_id, e.course_id, e.progress, e.created_at AS enrolled_at
		FROM enrollments e JOIN courses c ON c.id = e.course_id
		WHERE ` + scopeCond + `
		ORDER BY e.created_at`
	var rows []*enrollmentRecordRow
	if err := queries.Raw(q, scope.InstructorID).Bind(ctx, rm.exec(), &rows); err != nil {
		return nil, errors.Wrap(err, "querying enrollment records")
	}
	records := make([]analytics.EnrollmentRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, analytics.EnrollmentRecord(*r))
	}
	return records, nil
}

func (rm analyticsReadModel) Completions(ctx context.Context, scope analytics.Scope) ([]analytics.CompletionRecord, error) {
	q := `SELECT cl.user_id, cl.course_id, cl.created_at AS completed_at
		FROM completed_lessons cl JOIN courses c ON c.id = cl.course_id
		WHERE ` + scopeCond + `
		ORDER BY cl.created_at`
	var rows []*completionRecordRow
	if err := queries.Raw(q, scope.InstructorID).Bind(ctx, rm.exec(), &rows); err != nil {
		return nil, errors.Wrap(err, "querying completion records")
	}
	records := make([]analytics.CompletionRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, analytics.CompletionRecord(*r))
	}
	return records, nil
}

// PaidPayments uses the last update of a paid payment as its payment time.
func (rm analyticsReadModel) PaidPayments(ctx context.Context, scope analytics.Scope) ([]analytics.PaymentRecord, error) {
	q := `SELECT p.course_id, p.amount, p.updated_at AS paid_at
		FROM payments p JOIN courses c ON c.id = p.course_id
		WHERE p.status = 'paid' AND ` + scopeCond + `
		ORDER BY p.updated_at`
	var rows []*paymentRecordRow
	if err := queries.Raw(q, scope.InstructorID).Bind(ctx, rm.exec(), &rows); err != nil {
		return nil, errors.Wrap(err, "querying payment records")
	}
	records := make([]analytics.PaymentRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, analytics.PaymentRecord(*r))
	}
	return records, nil
}

func (rm analyticsReadModel) Totals(ctx context.Context) (analytics.Totals, error) {
	q := `SELECT
		(SELECT COUNT(*) FROM profiles) AS users,
		(SELECT COUNT(*) FROM profiles WHERE role = 'learner') AS learners,
		(SELECT COUNT(*) FROM profiles WHERE role = 'instructor') AS instructors,
		(SELECT COUNT(*) FROM profiles WHERE role = 'admin') AS admins,
		(SELECT COUNT(*) FROM courses) AS courses,
		(SELECT COUNT(*) FROM courses WHERE is_published) AS published_courses,
		(SELECT COUNT(*) FROM enrollments) AS enrollments,
		(SELECT COUNT(*) FROM enrollments WHERE progress = 100) AS completed_enrollments,
		(SELECT COUNT(*) FROM payments WHERE status = 'paid') AS paid_payments,
		(SELECT COUNT(*) FROM payments WHERE status = 'pending') AS pending_payments,
		(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'paid') AS revenue`
	var row totalsRow
	if err := queries.Raw(q).Bind(ctx, rm.exec(), &row); err != nil {
		return analytics.Totals{}, errors.Wrap(err, "querying totals")
	}
	return analytics.Totals(row), nil
}
