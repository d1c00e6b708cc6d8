package learning

import (
	"time"

	"github.com/trezcool/darasa/core/course"
)

// Enrollment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

type Enrollment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title,omitempty"`
	Progress    int       `json:"progress"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type CompletedLesson struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	LessonID  string    `json:"lesson_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type EnrollmentFilter struct {
	UserID   string
	CourseID string
}

type LessonState struct {
	course.Lesson
	Completed bool `json:"completed"`
}

type SectionProgress struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Position int           `json:"position"`
	Lessons  []LessonState `json:"lessons"`
}

// CourseProgress is a learner's view of an enrolled course.
type CourseProgress struct {
	Enrollment           Enrollment        `json:"enrollment"`
	Course               course.Course     `json:"course"`
	Sections             []SectionProgress `json:"sections"`
	CompletedLessons     int               `json:"completed_lessons"`
	TotalLessons         int               `json:"total_lessons"`
	Progress             int               `json:"progress"`
	CertificateAvailable bool              `json:"certificate_available"`
}

// LessonView is a single lesson along with its neighbours in playback order.
type LessonView struct {
	CourseID     string         `json:"course_id"`
	CourseTitle  string         `json:"course_title"`
	Section      course.Section `json:"section"`
	Lesson       course.Lesson  `json:"lesson"`
	PrevLessonID string         `json:"prev_lesson_id"`
	NextLessonID string         `json:"next_lesson_id"`
	Completed    bool           `json:"completed"`
	Progress     int            `json:"progress"`
}

type ToggleResult struct {
	LessonID  string `json:"lesson_id"`
	Completed bool   `json:"completed"`
	Progress  int    `json:"progress"`
}
