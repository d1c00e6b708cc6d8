package certificate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc       *certificate.Service
	repo      certificate.Repository
	learnings learning.Repository
	learner   core.Identity
	course    course.Course
}

func setup(t *testing.T, lessons int) fixture {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	users := inmemdb.NewUserRepository(db)
	courses := inmemdb.NewCourseRepository(db)
	learnings := inmemdb.NewLearningRepository(db)
	repo := inmemdb.NewCertificateRepository(db)

	baraka := testutil.CreateUser(t, users, "Baraka Otieno", "baraka@darasa.test", "", core.RoleInstructor, true)
	learner := testutil.CreateUser(t, users, "Amani Njeri", "amani@darasa.test", "", core.RoleLearner, true)
	c := testutil.CreateCourse(t, courses, baraka.ID, "Go Basics", 50, true, lessons)

	return fixture{
		svc:       certificate.NewService(repo, learnings, courses, users),
		repo:      repo,
		learnings: learnings,
		learner:   learner.Identity(),
		course:    c,
	}
}

func TestService_Issue(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	assert.Equal(t, learning.ErrNotEnrolled, err)

	enr := testutil.Enroll(t, f.learnings, f.learner.UserID, f.course.ID)
	testutil.CompleteLessons(t, f.learnings, enr, f.course, 1)
	_, err = f.svc.Issue(ctx, f.learner, f.course.ID)
	assert.Equal(t, certificate.ErrNotCompleted, err)

	testutil.CompleteLessons(t, f.learnings, enr, f.course, 2)
	details, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.True(t, details.IsValid)
	assert.Equal(t, certificate.Encode(f.course.ID, f.learner.UserID), details.Code)
	assert.Equal(t, "Amani Njeri", details.StudentName)
	assert.Equal(t, "Go Basics", details.CourseName)
	assert.Equal(t, "Baraka Otieno", details.InstructorName)
	assert.False(t, details.CompletionDate.IsZero())

	// issuing again returns the same certificate
	again, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, details, again)
}

func TestService_Get(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.learner, f.course.ID)
	assert.Equal(t, learning.ErrNotEnrolled, err)

	enr := testutil.Enroll(t, f.learnings, f.learner.UserID, f.course.ID)
	_, err = f.svc.Get(ctx, f.learner, f.course.ID)
	assert.Equal(t, certificate.ErrNotCompleted, err)

	testutil.CompleteLessons(t, f.learnings, enr, f.course, 1)
	_, err = f.svc.Get(ctx, f.learner, f.course.ID)
	assert.Equal(t, certificate.ErrNotFound, err)
	_, err = f.repo.GetCertificate(ctx, certificate.GetFilter{CourseID: f.course.ID, UserID: f.learner.UserID})
	assert.Equal(t, certificate.ErrNotFound, err, "reading does not issue")

	issued, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, issued, got)
}

func TestService_Issue_CodeCollision(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	// another pair already owns the canonical code
	_, err := f.repo.CreateCertificate(ctx, certificate.Certificate{
		Code:        certificate.Encode(f.course.ID, f.learner.UserID),
		CourseID:    f.course.ID,
		UserID:      "someone-else",
		IssuedAt:    time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	enr := testutil.Enroll(t, f.learnings, f.learner.UserID, f.course.ID)
	testutil.CompleteLessons(t, f.learnings, enr, f.course, 1)

	details, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, certificate.Encode(f.course.ID, f.learner.UserID), details.Code)
	assert.True(t, strings.HasPrefix(details.Code, "CERT-"))
	_, err = certificate.Decode(details.Code)
	assert.NoError(t, err)

	verified, err := f.svc.Verify(ctx, details.Code)
	require.NoError(t, err)
	assert.Equal(t, "Amani Njeri", verified.StudentName)
}

func TestService_Verify(t *testing.T) {
	f := setup(t, 100)
	ctx := context.Background()
	enr := testutil.Enroll(t, f.learnings, f.learner.UserID, f.course.ID)
	testutil.CompleteLessons(t, f.learnings, enr, f.course, 100)

	issued, err := f.svc.Issue(ctx, f.learner, f.course.ID)
	require.NoError(t, err)

	details, err := f.svc.Verify(ctx, "  "+issued.Code+" ")
	require.NoError(t, err)
	assert.True(t, details.IsValid)
	assert.Equal(t, issued.Code, details.Code)

	_, err = f.svc.Verify(ctx, "not-a-code")
	assert.Equal(t, certificate.ErrInvalidFormat, err)

	_, err = f.svc.Verify(ctx, "CERT-a-b-c")
	assert.Equal(t, certificate.ErrInvalidFormat, err)

	// prefix lookups are not accepted
	_, err = f.svc.Verify(ctx, issued.Code[:len(issued.Code)-1])
	assert.Equal(t, certificate.ErrNotFound, err)

	// progress dropped to 99
	lessons := f.course.Lessons()
	_, err = f.learnings.UncompleteLesson(ctx, f.learner.UserID, lessons[len(lessons)-1].ID)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, issued.Code)
	assert.Equal(t, certificate.ErrNotCompleted, err)

	enr, err = f.learnings.GetEnrollment(ctx, f.learner.UserID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, enr.Progress)
}
