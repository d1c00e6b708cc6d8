package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
	testutil "github.com/trezcool/darasa/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Amani", "amani@darasa.test", "Xk9#mQ2$vL", core.RoleLearner, true)
	assert.NotEmpty(t, usr.ID)
	assert.NoError(t, usr.CheckPassword("Xk9#mQ2$vL"))

	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "amani@darasa.test"))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "amani@darasa.test", usr.ID))

	got, err := repo.GetUser(ctx, user.GetFilter{Email: "amani@darasa.test"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got.Bio = "Learning Go"
	got, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Learning Go", got.Bio)

	n, err := repo.DeleteUsersByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestTxRunner_WithinTx(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	txr := sqlxrepos.NewTxRunner(db)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := txr.WithinTx(ctx, func(ctx context.Context) error {
		usr := user.User{Email: "rolled@darasa.test", FullName: "Rolled", Role: core.RoleLearner}
		usr.SetActive(true)
		if _, err := repo.CreateUser(ctx, usr); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	_, err = repo.GetUser(ctx, user.GetFilter{Email: "rolled@darasa.test"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestLearningRepository_CreateEnrollment(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	lrnRepo := sqlxrepos.NewLearningRepository(db)

	baraka := testutil.CreateUser(t, usrRepo, "Baraka", "baraka@darasa.test", "", core.RoleInstructor, true)
	amani := testutil.CreateUser(t, usrRepo, "Amani", "amani@darasa.test", "", core.RoleLearner, true)
	crs := testutil.CreateCourse(t, crsRepo, baraka.ID, "Go Basics", 0, true, 2, 1)
	assert.Len(t, crs.Lessons(), 3)

	enr := testutil.Enroll(t, lrnRepo, amani.ID, crs.ID)
	again, created, err := lrnRepo.CreateEnrollment(context.Background(), enr)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enr.ID, again.ID)

	enr = testutil.CompleteLessons(t, lrnRepo, enr, crs, 3)
	assert.Equal(t, 100, enr.Progress)
}

func TestCourseRepository_QueryCourses(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewCourseRepository(db)

	baraka := testutil.CreateUser(t, usrRepo, "Baraka", "baraka@darasa.test", "", core.RoleInstructor, true)
	testutil.CreateCourse(t, repo, baraka.ID, "Go Basics", 0, true, 1)
	testutil.CreateCourse(t, repo, baraka.ID, "100% Go", 0, true, 1)
	testutil.CreateCourse(t, repo, baraka.ID, "snake_case naming", 0, true, 1)

	tests := []struct {
		search string
		want   []string
	}{
		{"go", []string{"Go Basics", "100% Go"}},
		{"100%", []string{"100% Go"}},
		{"e_c", []string{"snake_case naming"}},
		{"%", []string{"100% Go"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			courses, err := repo.QueryCourses(context.Background(), &course.QueryFilter{Search: tt.search}, nil)
			require.NoError(t, err)
			titles := make([]string, 0, len(courses))
			for _, c := range courses {
				titles = append(titles, c.Title)
			}
			assert.ElementsMatch(t, tt.want, titles)
		})
	}
}

func TestPaymentRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewPaymentRepository(db)
	ctx := context.Background()

	baraka := testutil.CreateUser(t, usrRepo, "Baraka", "baraka@darasa.test", "", core.RoleInstructor, true)
	amani := testutil.CreateUser(t, usrRepo, "Amani", "amani@darasa.test", "", core.RoleLearner, true)
	crs := testutil.CreateCourse(t, crsRepo, baraka.ID, "Go Basics", 50, true, 1)

	newPayment := func(ref string, createdAt time.Time) payment.Payment {
		p, err := repo.CreatePayment(ctx, payment.Payment{
			UserID:    amani.ID,
			CourseID:  crs.ID,
			Amount:    55,
			Method:    payment.MethodInvoice,
			Status:    payment.StatusPending,
			Reference: ref,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
		require.NoError(t, err)
		return p
	}

	t.Run("TransitionStatus", func(t *testing.T) {
		newPayment("inv-1", time.Now())

		p, changed, err := repo.TransitionStatus(ctx, "inv-1", payment.StatusPaid)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, payment.StatusPaid, p.Status)

		p, changed, err = repo.TransitionStatus(ctx, "inv-1", payment.StatusExpired)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, payment.StatusPaid, p.Status)

		_, _, err = repo.TransitionStatus(ctx, "inv-unknown", payment.StatusPaid)
		assert.Equal(t, payment.ErrNotFound, errors.Cause(err))
	})

	t.Run("ExpirePending", func(t *testing.T) {
		stale := newPayment("inv-2", time.Now().Add(-48*time.Hour))
		fresh := newPayment("inv-3", time.Now())

		n, err := repo.ExpirePending(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := repo.GetPayment(ctx, payment.GetFilter{ID: stale.ID})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusExpired, got.Status)
		assert.Equal(t, "Go Basics", got.CourseTitle)

		got, err = repo.GetPayment(ctx, payment.GetFilter{Reference: fresh.Reference})
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, got.Status)
	})

	t.Run("RecordWebhookEvent", func(t *testing.T) {
		first, err := repo.RecordWebhookEvent(ctx, "xendit:invoice:inv-1:PAID")
		require.NoError(t, err)
		assert.True(t, first)

		first, err = repo.RecordWebhookEvent(ctx, "xendit:invoice:inv-1:PAID")
		require.NoError(t, err)
		assert.False(t, first)
	})
}
