package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/user"
)

const CallbackToken = "xnd-callback-token"

// NewConfig returns a test configuration with parsed email templates.
func NewConfig(t *testing.T) *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.AppName = "Darasa"
	conf.FrontendBaseURL = "http://darasa.test"
	conf.Xendit.CallbackToken = CallbackToken
	conf.Xendit.Currency = "USD"
	conf.Payment.TaxRate = 0.1
	conf.Payment.PendingTTL = 24 * time.Hour
	conf.Payment.IdempotencyTTL = time.Hour
	if err := core.ParseEmailTemplates(conf); err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:  name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course owned by instructorID; lessonsPerSection gives the outline,
// one section per entry.
func CreateCourse(
	t *testing.T,
	repo course.Repository,
	instructorID, title string,
	price float64,
	published bool,
	lessonsPerSection ...int,
) course.Course {
	now := time.Now().UTC()
	c := course.Course{
		Title:        title,
		Description:  title + " description",
		Price:        price,
		Duration:     "2h",
		IsPublished:  published,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, n := range lessonsPerSection {
		s := course.Section{Title: fmt.Sprintf("Section %d", i+1), Position: i}
		for j := 0; j < n; j++ {
			s.Lessons = append(s.Lessons, course.Lesson{
				Title:    fmt.Sprintf("Lesson %d.%d", i+1, j+1),
				Content:  fmt.Sprintf("Content %d.%d", i+1, j+1),
				Duration: "10m",
				Position: j,
			})
		}
		c.Sections = append(c.Sections, s)
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo learning.Repository, userID, courseID string) learning.Enrollment {
	now := time.Now().UTC()
	enr, _, err := repo.CreateEnrollment(context.Background(), learning.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    learning.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

// CompleteLessons marks the first n lessons of c as completed by userID and syncs the progress.
func CompleteLessons(t *testing.T, repo learning.Repository, enr learning.Enrollment, c course.Course, n int) learning.Enrollment {
	ctx := context.Background()
	for _, l := range c.Lessons()[:n] {
		if _, err := repo.CompleteLesson(ctx, learning.CompletedLesson{
			UserID:    enr.UserID,
			LessonID:  l.ID,
			CourseID:  c.ID,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("CompleteLessons() failed: %v", err)
		}
	}
	enr, err := repo.SyncProgress(ctx, enr.ID)
	if err != nil {
		t.Fatalf("CompleteLessons() failed: %v", err)
	}
	return enr
}
