package certificate

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("certificate not found")
	ErrNotCompleted  = core.NewValidationError(errors.New("course not completed"))
	ErrCodeTaken     = errors.New("certificate code already in use")
	ErrAlreadyIssued = errors.New("certificate already issued")
)

type Certificate struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	CourseID    string    `json:"course_id"`
	UserID      string    `json:"user_id"`
	IssuedAt    time.Time `json:"issued_at"`    // UTC
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// Details is the public, verifiable description of a certificate.
type Details struct {
	IsValid        bool      `json:"is_valid"`
	Code           string    `json:"certificate_id"`
	StudentName    string    `json:"student_name"`
	CourseName     string    `json:"course_name"`
	InstructorName string    `json:"instructor_name"`
	CompletionDate time.Time `json:"completion_date"`
	IssuedAt       time.Time `json:"issued_at"`
}

type GetFilter struct {
	Code     string
	CourseID string
	UserID   string
}

type (
	Repository interface {
		// GetCertificate finds a certificate by exact code, or by (course, user).
		GetCertificate(ctx context.Context, filter GetFilter) (Certificate, error)
		// CreateCertificate returns ErrCodeTaken or ErrAlreadyIssued on uniqueness conflicts.
		CreateCertificate(ctx context.Context, cert Certificate) (Certificate, error)
	}

	EnrollmentReader interface {
		GetEnrollment(ctx context.Context, userID, courseID string) (learning.Enrollment, error)
		CompletedLessons(ctx context.Context, userID, courseID string) ([]learning.CompletedLesson, error)
		SyncProgress(ctx context.Context, enrollmentID string) (learning.Enrollment, error)
	}

	CourseReader interface {
		GetCourse(ctx context.Context, id string, withOutline bool) (course.Course, error)
	}

	UserReader interface {
		GetUser(ctx context.Context, filter user.GetFilter) (user.User, error)
	}

	Service struct {
		repo        Repository
		enrollments EnrollmentReader
		courses     CourseReader
		users       UserReader
	}
)

func NewService(repo Repository, enrollments EnrollmentReader, courses CourseReader, users UserReader) *Service {
	return &Service{repo: repo, enrollments: enrollments, courses: courses, users: users}
}

// completedEnrollment returns the reconciled enrollment of (userID, courseID), which must be complete.
func (svc *Service) completedEnrollment(ctx context.Context, userID, courseID string) (learning.Enrollment, error) {
	enr, err := svc.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return learning.Enrollment{}, err
	}
	if enr, err = svc.enrollments.SyncProgress(ctx, enr.ID); err != nil {
		return learning.Enrollment{}, errors.Wrap(err, "syncing progress")
	}
	if enr.Progress != 100 {
		return learning.Enrollment{}, ErrNotCompleted
	}
	return enr, nil
}

// callerEnrollment returns the caller's completed enrollment in the course.
func (svc *Service) callerEnrollment(ctx context.Context, actor core.Identity, courseID string) (learning.Enrollment, error) {
	enr, err := svc.completedEnrollment(ctx, actor.UserID, courseID)
	if errors.Cause(err) == learning.ErrEnrollmentNotFound {
		return learning.Enrollment{}, learning.ErrNotEnrolled
	}
	return enr, err
}

// Get returns the certificate already issued to the caller for a completed course.
func (svc *Service) Get(ctx context.Context, actor core.Identity, courseID string) (Details, error) {
	if _, err := svc.callerEnrollment(ctx, actor, courseID); err != nil {
		return Details{}, err
	}
	cert, err := svc.repo.GetCertificate(ctx, GetFilter{CourseID: courseID, UserID: actor.UserID})
	if err != nil {
		return Details{}, err
	}
	return svc.details(ctx, cert)
}

// Issue returns the caller's certificate for a completed course, issuing it on first request.
func (svc *Service) Issue(ctx context.Context, actor core.Identity, courseID string) (Details, error) {
	enr, err := svc.callerEnrollment(ctx, actor, courseID)
	if err != nil {
		return Details{}, err
	}

	cert, err := svc.repo.GetCertificate(ctx, GetFilter{CourseID: courseID, UserID: actor.UserID})
	if err == nil {
		return svc.details(ctx, cert)
	} else if errors.Cause(err) != ErrNotFound {
		return Details{}, errors.Wrap(err, "getting certificate")
	}

	completedAt, err := svc.completionDate(ctx, enr)
	if err != nil {
		return Details{}, err
	}
	cert = Certificate{
		Code:        Encode(courseID, actor.UserID),
		CourseID:    courseID,
		UserID:      actor.UserID,
		IssuedAt:    time.Now().UTC(),
		CompletedAt: completedAt,
	}
	created, err := svc.repo.CreateCertificate(ctx, cert)
	if errors.Cause(err) == ErrCodeTaken {
		cert.Code = encodeHashed(courseID, actor.UserID)
		created, err = svc.repo.CreateCertificate(ctx, cert)
	}
	if errors.Cause(err) == ErrAlreadyIssued { // concurrent request won
		created, err = svc.repo.GetCertificate(ctx, GetFilter{CourseID: courseID, UserID: actor.UserID})
	}
	if err != nil {
		return Details{}, errors.Wrap(err, "creating certificate")
	}
	return svc.details(ctx, created)
}

// Verify checks a certificate code and returns the certificate details.
func (svc *Service) Verify(ctx context.Context, code string) (Details, error) {
	code = strings.TrimSpace(code)
	if _, err := Decode(code); err != nil {
		return Details{}, err
	}

	cert, err := svc.repo.GetCertificate(ctx, GetFilter{Code: code})
	if err != nil {
		return Details{}, err
	}
	if _, err = svc.completedEnrollment(ctx, cert.UserID, cert.CourseID); err != nil {
		if errors.Cause(err) == learning.ErrEnrollmentNotFound {
			return Details{}, ErrNotFound
		}
		return Details{}, err
	}
	return svc.details(ctx, cert)
}

// completionDate is the time of the last lesson completion, or the enrollment date without completions.
func (svc *Service) completionDate(ctx context.Context, enr learning.Enrollment) (time.Time, error) {
	completed, err := svc.enrollments.CompletedLessons(ctx, enr.UserID, enr.CourseID)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "getting completed lessons")
	}
	last := enr.CreatedAt
	if len(completed) > 0 {
		last = completed[0].CreatedAt
		for _, cl := range completed[1:] {
			if cl.CreatedAt.After(last) {
				last = cl.CreatedAt
			}
		}
	}
	return last.UTC(), nil
}

func (svc *Service) details(ctx context.Context, cert Certificate) (Details, error) {
	c, err := svc.courses.GetCourse(ctx, cert.CourseID, false)
	if err != nil {
		return Details{}, errors.Wrap(err, "getting course")
	}
	student, err := svc.users.GetUser(ctx, user.GetFilter{ID: cert.UserID})
	if err != nil {
		return Details{}, errors.Wrap(err, "getting student")
	}
	return Details{
		IsValid:        true,
		Code:           cert.Code,
		StudentName:    student.FullName,
		CourseName:     c.Title,
		InstructorName: c.InstructorName,
		CompletionDate: cert.CompletedAt,
		IssuedAt:       cert.IssuedAt,
	}, nil
}
