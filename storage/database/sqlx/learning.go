package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/learning"
)

const enrollmentSelect = `SELECT e.id, e.user_id, e.course_id, COALESCE(c.title, '') AS course_title,
	e.progress, e.status, e.created_at, e.updated_at
	FROM enrollments e LEFT JOIN courses c ON c.id = e.course_id`

// syncProgressQuery recomputes the progress of enrollment $1 and only writes it when it changed.
const syncProgressQuery = `WITH counts AS (
	SELECT e.id,
		(SELECT COUNT(*) FROM lessons l JOIN sections s ON s.id = l.section_id
			WHERE s.course_id = e.course_id) AS total,
		(SELECT COUNT(*) FROM completed_lessons cl JOIN lessons l ON l.id = cl.lesson_id JOIN sections s ON s.id = l.section_id
			WHERE cl.user_id = e.user_id AND s.course_id = e.course_id) AS done
	FROM enrollments e WHERE e.id::text = $1
), computed AS (
	SELECT id, CASE WHEN total = 0 THEN 0 ELSE LEAST(100, (200 * done + total) / (2 * total)) END AS progress
	FROM counts
)
UPDATE enrollments e
SET progress = computed.progress,
	status = CASE WHEN computed.progress >= 100 THEN 'completed' ELSE 'active' END,
	updated_at = now()
FROM computed
WHERE e.id = computed.id
	AND (e.progress IS DISTINCT FROM computed.progress
		OR e.status IS DISTINCT FROM CASE WHEN computed.progress >= 100 THEN 'completed' ELSE 'active' END)`

type enrollmentRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	CourseID    string    `db:"course_id"`
	CourseTitle string    `db:"course_title"`
	Progress    int       `db:"progress"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r enrollmentRow) enrollment() learning.Enrollment {
	return learning.Enrollment{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		CourseTitle: r.CourseTitle,
		Progress:    r.Progress,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type completedLessonRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	LessonID  string    `db:"lesson_id"`
	CourseID  string    `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
}

type learningRepository struct {
	db *sqlx.DB
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *sqlx.DB) *learningRepository {
	return &learningRepository{db: db}
}

func (repo learningRepository) getEnrollment(ctx context.Context, cond string, args ...interface{}) (learning.Enrollment, error) {
	var row enrollmentRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, enrollmentSelect+" WHERE "+cond, args...); err != nil {
		return learning.Enrollment{}, trapNoRowsErr(err, learning.ErrEnrollmentNotFound, "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo learningRepository) GetEnrollment(ctx context.Context, userID, courseID string) (learning.Enrollment, error) {
	return repo.getEnrollment(ctx, "e.user_id::text = $1 AND e.course_id::text = $2", userID, courseID)
}

func (repo learningRepository) QueryEnrollments(ctx context.Context, filter learning.EnrollmentFilter) ([]learning.Enrollment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, "e.user_id::text = $"+strconv.Itoa(len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conds = append(conds, "e.course_id::text = $"+strconv.Itoa(len(args)))
	}

	q := enrollmentSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY e.created_at DESC"

	var rows []enrollmentRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]learning.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.enrollment())
	}
	return enrs, nil
}

func (repo learningRepository) CreateEnrollment(ctx context.Context, e learning.Enrollment) (learning.Enrollment, bool, error) {
	q := `INSERT INTO enrollments (user_id, course_id, progress, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, course_id) DO NOTHING
		RETURNING id`
	var id string
	err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &id, q,
		e.UserID, e.CourseID, e.Progress, e.Status, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	switch {
	case err == sql.ErrNoRows: // already enrolled
		enr, err := repo.GetEnrollment(ctx, e.UserID, e.CourseID)
		return enr, false, err
	case err != nil:
		return learning.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
	}
	enr, err := repo.getEnrollment(ctx, "e.id = $1", id)
	return enr, true, err
}

func (repo learningRepository) CompletedLessons(ctx context.Context, userID, courseID string) ([]learning.CompletedLesson, error) {
	q := `SELECT id, user_id, lesson_id, course_id, created_at FROM completed_lessons
		WHERE user_id::text = $1 AND course_id::text = $2
		ORDER BY created_at`
	var rows []completedLessonRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, userID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying completed lessons")
	}
	completed := make([]learning.CompletedLesson, 0, len(rows))
	for _, r := range rows {
		completed = append(completed, learning.CompletedLesson{
			ID:        r.ID,
			UserID:    r.UserID,
			LessonID:  r.LessonID,
			CourseID:  r.CourseID,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return completed, nil
}

func (repo learningRepository) CompleteLesson(ctx context.Context, cl learning.CompletedLesson) (bool, error) {
	q := `INSERT INTO completed_lessons (user_id, lesson_id, course_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, lesson_id) DO NOTHING`
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, cl.UserID, cl.LessonID, cl.CourseID, cl.CreatedAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting completed lesson")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting completed lesson")
	}
	return n > 0, nil
}

func (repo learningRepository) UncompleteLesson(ctx context.Context, userID, lessonID string) (bool, error) {
	q := "DELETE FROM completed_lessons WHERE user_id::text = $1 AND lesson_id::text = $2"
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, userID, lessonID)
	if err != nil {
		return false, errors.Wrap(err, "deleting completed lesson")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "deleting completed lesson")
	}
	return n > 0, nil
}

func (repo learningRepository) SyncProgress(ctx context.Context, enrollmentID string) (learning.Enrollment, error) {
	if _, err := getExec(ctx, repo.db).ExecContext(ctx, syncProgressQuery, enrollmentID); err != nil {
		return learning.Enrollment{}, errors.Wrap(err, "syncing progress")
	}
	return repo.getEnrollment(ctx, "e.id::text = $1", enrollmentID)
}
