package learning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type fixture struct {
	svc     *learning.Service
	repo    learning.Repository
	learner core.Identity
	course  course.Course
}

func setup(t *testing.T, lessonsPerSection ...int) fixture {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	users := inmemdb.NewUserRepository(db)
	courses := inmemdb.NewCourseRepository(db)
	repo := inmemdb.NewLearningRepository(db)

	baraka := testutil.CreateUser(t, users, "Baraka Otieno", "baraka@darasa.test", "", core.RoleInstructor, true)
	learner := testutil.CreateUser(t, users, "Amani Njeri", "amani@darasa.test", "", core.RoleLearner, true)
	c := testutil.CreateCourse(t, courses, baraka.ID, "Go Basics", 50, true, lessonsPerSection...)

	return fixture{
		svc:     learning.NewService(repo, courses, inmemdb.NewTxRunner(db)),
		repo:    repo,
		learner: learner.Identity(),
		course:  c,
	}
}

func TestService_Enroll(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	enr, created, err := f.svc.Enroll(ctx, f.learner.UserID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, enr.Progress)
	assert.Equal(t, learning.StatusActive, enr.Status)

	again, created, err := f.svc.Enroll(ctx, f.learner.UserID, f.course.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enr.ID, again.ID)

	enrs, err := f.svc.ListEnrollments(ctx, f.learner)
	require.NoError(t, err)
	require.Len(t, enrs, 1)
	assert.Equal(t, "Go Basics", enrs[0].CourseTitle)
}

func TestService_ToggleLesson(t *testing.T) {
	f := setup(t, 2, 1)
	ctx := context.Background()
	testutil.Enroll(t, f.repo, f.learner.UserID, f.course.ID)
	lessons := f.course.Lessons()
	require.Len(t, lessons, 3)

	res, err := f.svc.ToggleLesson(ctx, f.learner, f.course.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, learning.ToggleResult{LessonID: lessons[0].ID, Completed: true, Progress: 33}, res)

	res, err = f.svc.ToggleLesson(ctx, f.learner, f.course.ID, lessons[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 67, res.Progress)

	// toggling twice restores the previous progress
	res, err = f.svc.ToggleLesson(ctx, f.learner, f.course.ID, lessons[1].ID)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 33, res.Progress)

	for _, l := range lessons[1:] {
		_, err = f.svc.ToggleLesson(ctx, f.learner, f.course.ID, l.ID)
		require.NoError(t, err)
	}
	enr, err := f.repo.GetEnrollment(ctx, f.learner.UserID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, enr.Progress)
	assert.Equal(t, learning.StatusCompleted, enr.Status)

	res, err = f.svc.ToggleLesson(ctx, f.learner, f.course.ID, lessons[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 67, res.Progress)
	enr, err = f.repo.GetEnrollment(ctx, f.learner.UserID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, learning.StatusActive, enr.Status)
}

func TestService_ToggleLesson_Errors(t *testing.T) {
	f := setup(t, 1)
	other := setup(t, 1)
	ctx := context.Background()

	_, err := f.svc.ToggleLesson(ctx, f.learner, f.course.ID, f.course.Lessons()[0].ID)
	assert.Equal(t, learning.ErrNotEnrolled, err)
	assert.True(t, core.IsPermissionDenied(err))

	testutil.Enroll(t, f.repo, f.learner.UserID, f.course.ID)
	_, err = f.svc.ToggleLesson(ctx, f.learner, f.course.ID, other.course.Lessons()[0].ID)
	assert.Equal(t, course.ErrLessonNotFound, err)
	assert.True(t, core.IsNotFound(err))
}

func TestService_CourseProgress(t *testing.T) {
	f := setup(t, 3, 1)
	ctx := context.Background()
	enr := testutil.Enroll(t, f.repo, f.learner.UserID, f.course.ID)
	testutil.CompleteLessons(t, f.repo, enr, f.course, 2)

	cp, err := f.svc.CourseProgress(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, cp.Progress)
	assert.Equal(t, 2, cp.CompletedLessons)
	assert.Equal(t, 4, cp.TotalLessons)
	assert.False(t, cp.CertificateAvailable)
	assert.Nil(t, cp.Course.Sections)
	require.Len(t, cp.Sections, 2)
	require.Len(t, cp.Sections[0].Lessons, 3)
	assert.True(t, cp.Sections[0].Lessons[0].Completed)
	assert.True(t, cp.Sections[0].Lessons[1].Completed)
	assert.False(t, cp.Sections[0].Lessons[2].Completed)
	assert.Empty(t, cp.Sections[0].Lessons[0].Content)

	testutil.CompleteLessons(t, f.repo, enr, f.course, 4)
	cp, err = f.svc.CourseProgress(ctx, f.learner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, cp.Progress)
	assert.True(t, cp.CertificateAvailable)
}

func TestService_GetLesson(t *testing.T) {
	f := setup(t, 2, 1)
	ctx := context.Background()
	lessons := f.course.Lessons()

	_, err := f.svc.GetLesson(ctx, f.learner, f.course.ID, lessons[0].ID)
	assert.Equal(t, learning.ErrNotEnrolled, err)

	testutil.Enroll(t, f.repo, f.learner.UserID, f.course.ID)

	tests := []struct {
		name     string
		lessonID string
		prev     string
		next     string
		section  string
	}{
		{name: "first", lessonID: lessons[0].ID, prev: "", next: lessons[1].ID, section: "Section 1"},
		{name: "middle", lessonID: lessons[1].ID, prev: lessons[0].ID, next: lessons[2].ID, section: "Section 1"},
		{name: "last", lessonID: lessons[2].ID, prev: lessons[1].ID, next: "", section: "Section 2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view, err := f.svc.GetLesson(ctx, f.learner, f.course.ID, tc.lessonID)
			require.NoError(t, err)
			assert.Equal(t, tc.lessonID, view.Lesson.ID)
			assert.Equal(t, tc.prev, view.PrevLessonID)
			assert.Equal(t, tc.next, view.NextLessonID)
			assert.Equal(t, tc.section, view.Section.Title)
			assert.NotEmpty(t, view.Lesson.Content)
		})
	}

	_, err = f.svc.GetLesson(ctx, f.learner, f.course.ID, "missing")
	assert.Equal(t, course.ErrLessonNotFound, err)
}
