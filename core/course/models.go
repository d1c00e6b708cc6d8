package course

import (
	"time"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	Duration       string    `json:"duration"`
	ThumbnailURL   string    `json:"thumbnail_url"`
	IsPublished    bool      `json:"is_published"`
	InstructorID   string    `json:"instructor_id"`
	InstructorName string    `json:"instructor_name"`
	StudentsCount  int       `json:"students_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	Sections       []Section `json:"sections,omitempty"`
}

type Section struct {
	ID       string   `json:"id"`
	CourseID string   `json:"course_id"`
	Title    string   `json:"title"`
	Position int      `json:"position"`
	Lessons  []Lesson `json:"lessons"`
}

type Lesson struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	Duration  string `json:"duration"`
	Position  int    `json:"position"`
}

// Lessons returns the course lessons in playback order: (section.position, lesson.position).
// Sections and lessons are expected to be sorted, as returned by the repositories.
func (c Course) Lessons() []Lesson {
	lessons := make([]Lesson, 0, c.LessonCount())
	for _, s := range c.Sections {
		lessons = append(lessons, s.Lessons...)
	}
	return lessons
}

func (c Course) LessonCount() int {
	var n int
	for _, s := range c.Sections {
		n += len(s.Lessons)
	}
	return n
}

// Section returns the section with the given id.
func (c Course) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Outline returns a copy of the course without lesson contents.
func (c Course) Outline() Course {
	sections := make([]Section, 0, len(c.Sections))
	for _, s := range c.Sections {
		lessons := make([]Lesson, 0, len(s.Lessons))
		for _, l := range s.Lessons {
			l.Content = ""
			l.VideoURL = ""
			lessons = append(lessons, l)
		}
		s.Lessons = lessons
		sections = append(sections, s)
	}
	c.Sections = sections
	return c
}

// CanEdit reports whether id may author the course.
func (c Course) CanEdit(id core.Identity) bool {
	return id.IsAdmin() || (id.CanTeach() && c.InstructorID == id.UserID)
}

// NewCourse contains information needed to create a course with its outline.
type NewCourse struct {
	Title        string       `json:"title" validate:"required,max=255"`
	Description  string       `json:"description" validate:"required"`
	Price        float64      `json:"price" validate:"gte=0"`
	Duration     string       `json:"duration" validate:"max=50"`
	ThumbnailURL string       `json:"thumbnail_url" validate:"omitempty,httpurl"`
	Sections     []NewSection `json:"sections" validate:"dive"`
}

type NewSection struct {
	Title   string      `json:"title" validate:"max=255"`
	Lessons []NewLesson `json:"lessons" validate:"dive"`
}

type NewLesson struct {
	Title    string `json:"title" validate:"max=255"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url" validate:"omitempty,httpurl"`
	Duration string `json:"duration" validate:"max=50"`
}

func (nc *NewCourse) Clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Duration = core.CleanString(nc.Duration)
	nc.ThumbnailURL = core.CleanString(nc.ThumbnailURL)
	for i := range nc.Sections {
		s := &nc.Sections[i]
		s.Title = core.CleanString(s.Title)
		for j := range s.Lessons {
			l := &s.Lessons[j]
			l.Title = core.CleanString(l.Title)
			l.VideoURL = core.CleanString(l.VideoURL)
			l.Duration = core.CleanString(l.Duration)
		}
	}
}

// UpdateCourse defines the course metadata an instructor may change.
// Nil fields are left untouched.
type UpdateCourse struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Duration     *string  `json:"duration" validate:"omitempty,max=50"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitempty,httpurl"`
}

func (uc *UpdateCourse) Clean() {
	for _, s := range []*string{uc.Title, uc.Description, uc.Duration, uc.ThumbnailURL} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor_id"`
	Published    *bool  `query:"published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}

// OrderingFields lists the fields courses can be ordered by.
var OrderingFields = []string{"title", "price", "students_count", "created_at", "updated_at"}
