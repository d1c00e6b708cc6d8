package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

const courseSelect = `SELECT c.id, c.title, c.description, c.price, c.duration, c.thumbnail_url, c.is_published,
	c.instructor_id, COALESCE(p.full_name, '') AS instructor_name, c.students_count, c.created_at, c.updated_at
	FROM courses c LEFT JOIN profiles p ON p.id = c.instructor_id`

type courseRow struct {
	ID             string       `db:"id"`
	Title          string       `db:"title"`
	Description    string       `db:"description"`
	Price          null.Float64 `db:"price"`
	Duration       null.String  `db:"duration"`
	ThumbnailURL   null.String  `db:"thumbnail_url"`
	IsPublished    bool         `db:"is_published"`
	InstructorID   string       `db:"instructor_id"`
	InstructorName string       `db:"instructor_name"`
	StudentsCount  int          `db:"students_count"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price.Float64,
		Duration:       r.Duration.String,
		ThumbnailURL:   r.ThumbnailURL.String,
		IsPublished:    r.IsPublished,
		InstructorID:   r.InstructorID,
		InstructorName: r.InstructorName,
		StudentsCount:  r.StudentsCount,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type sectionRow struct {
	ID       string `db:"id"`
	CourseID string `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type lessonRow struct {
	ID        string      `db:"id"`
	SectionID string      `db:"section_id"`
	Title     string      `db:"title"`
	Content   null.String `db:"content"`
	VideoURL  null.String `db:"video_url"`
	Duration  null.String `db:"duration"`
	Position  int         `db:"position"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

// CreateCourse must run within a transaction (see core.TxRunner).
func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	exec := getExec(ctx, repo.db)

	q := `INSERT INTO courses (title, description, price, duration, thumbnail_url, is_published, instructor_id, students_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := sqlx.GetContext(ctx, exec, &c.ID, q,
		c.Title, c.Description, c.Price, nullString(c.Duration), nullString(c.ThumbnailURL),
		c.IsPublished, c.InstructorID, c.StudentsCount, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}

	for i := range c.Sections {
		s := &c.Sections[i]
		s.CourseID = c.ID
		q = "INSERT INTO sections (course_id, title, position) VALUES ($1, $2, $3) RETURNING id"
		if err = sqlx.GetContext(ctx, exec, &s.ID, q, c.ID, s.Title, s.Position); err != nil {
			return course.Course{}, errors.Wrap(err, "inserting section")
		}
		for j := range s.Lessons {
			l := &s.Lessons[j]
			l.SectionID = s.ID
			q = `INSERT INTO lessons (section_id, title, content, video_url, duration, position)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
			err = sqlx.GetContext(ctx, exec, &l.ID, q,
				s.ID, l.Title, nullString(l.Content), nullString(l.VideoURL), nullString(l.Duration), l.Position)
			if err != nil {
				return course.Course{}, errors.Wrap(err, "inserting lesson")
			}
		}
	}
	return repo.GetCourse(ctx, c.ID, true)
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, withOutline bool) (course.Course, error) {
	exec := getExec(ctx, repo.db)

	var row courseRow
	if err := sqlx.GetContext(ctx, exec, &row, courseSelect+" WHERE c.id::text = $1", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	c := row.course()
	if !withOutline {
		return c, nil
	}

	var sections []sectionRow
	q := "SELECT id, course_id, title, position FROM sections WHERE course_id = $1 ORDER BY position, created_at"
	if err := sqlx.SelectContext(ctx, exec, &sections, q, c.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "getting sections")
	}
	var lessons []lessonRow
	q = `SELECT l.id, l.section_id, l.title, l.content, l.video_url, l.duration, l.position
		FROM lessons l JOIN sections s ON s.id = l.section_id
		WHERE s.course_id = $1
		ORDER BY l.position, l.created_at`
	if err := sqlx.SelectContext(ctx, exec, &lessons, q, c.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "getting lessons")
	}

	bySection := make(map[string][]course.Lesson, len(sections))
	for _, l := range lessons {
		bySection[l.SectionID] = append(bySection[l.SectionID], course.Lesson{
			ID:        l.ID,
			SectionID: l.SectionID,
			Title:     l.Title,
			Content:   l.Content.String,
			VideoURL:  l.VideoURL.String,
			Duration:  l.Duration.String,
			Position:  l.Position,
		})
	}
	c.Sections = make([]course.Section, 0, len(sections))
	for _, s := range sections {
		lessons := bySection[s.ID]
		if lessons == nil {
			lessons = []course.Lesson{}
		}
		c.Sections = append(c.Sections, course.Section{
			ID:       s.ID,
			CourseID: s.CourseID,
			Title:    s.Title,
			Position: s.Position,
			Lessons:  lessons,
		})
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "c.title ILIKE "+arg(containsPattern(filter.Search)))
		}
		if filter.InstructorID != "" {
			conds = append(conds, "c.instructor_id::text = "+arg(filter.InstructorID))
		}
		if filter.Published != nil {
			conds = append(conds, "c.is_published = "+arg(*filter.Published))
		}
	}

	q := courseSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "c.")

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `UPDATE courses SET title = $2, description = $3, price = $4, duration = $5, thumbnail_url = $6,
		is_published = $7, updated_at = $8
		WHERE id = $1`
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q,
		c.ID, c.Title, c.Description, c.Price, nullString(c.Duration), nullString(c.ThumbnailURL),
		c.IsPublished, c.UpdatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, c.ID, false)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, "DELETE FROM courses WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) IncrementStudentsCount(ctx context.Context, id string, delta int) error {
	q := "UPDATE courses SET students_count = GREATEST(students_count + $2, 0) WHERE id = $1"
	res, err := getExec(ctx, repo.db).ExecContext(ctx, q, id, delta)
	if err != nil {
		return errors.Wrap(err, "incrementing students count")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}
