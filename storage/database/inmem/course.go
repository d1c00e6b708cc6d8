package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// course returns the stored course joined with its instructor name and, optionally, its outline.
func (t tables) course(id string, withOutline bool) (course.Course, bool) {
	c, ok := t.courses[id]
	if !ok {
		return course.Course{}, false
	}
	c.InstructorName = t.users[c.InstructorID].FullName
	c.Sections = nil
	if !withOutline {
		return c, true
	}

	c.Sections = make([]course.Section, 0)
	for _, s := range t.sections {
		if s.CourseID == id {
			s.Lessons = make([]course.Lesson, 0)
			c.Sections = append(c.Sections, s)
		}
	}
	sort.Slice(c.Sections, func(i, j int) bool { return c.Sections[i].Position < c.Sections[j].Position })
	for i := range c.Sections {
		s := &c.Sections[i]
		for _, l := range t.lessons {
			if l.SectionID == s.ID {
				s.Lessons = append(s.Lessons, l)
			}
		}
		sort.Slice(s.Lessons, func(i, j int) bool { return s.Lessons[i].Position < s.Lessons[j].Position })
	}
	return c, true
}

// lessonIDs returns the set of lesson ids of a course.
func (t tables) lessonIDs(courseID string) map[string]bool {
	ids := make(map[string]bool)
	for _, l := range t.lessons {
		if s, ok := t.sections[l.SectionID]; ok && s.CourseID == courseID {
			ids[l.ID] = true
		}
	}
	return ids
}

// deleteCourse removes a course and the rows referencing it.
func (t tables) deleteCourse(id string) {
	delete(t.courses, id)
	for sid, s := range t.sections {
		if s.CourseID != id {
			continue
		}
		delete(t.sections, sid)
		for lid, l := range t.lessons {
			if l.SectionID == sid {
				delete(t.lessons, lid)
			}
		}
	}
	for eid, e := range t.enrollments {
		if e.CourseID == id {
			delete(t.enrollments, eid)
		}
	}
	for clid, cl := range t.completions {
		if cl.CourseID == id {
			delete(t.completions, clid)
		}
	}
	for pid, p := range t.payments {
		if p.CourseID == id {
			delete(t.payments, pid)
		}
	}
	for certID, cert := range t.certificates {
		if cert.CourseID == id {
			delete(t.certificates, certID)
		}
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	c.ID = uuid.New().String()
	for _, s := range c.Sections {
		s.ID = uuid.New().String()
		s.CourseID = c.ID
		for _, l := range s.Lessons {
			l.ID = uuid.New().String()
			l.SectionID = s.ID
			repo.db.tables.lessons[l.ID] = l
		}
		s.Lessons = nil
		repo.db.tables.sections[s.ID] = s
	}
	c.Sections = nil
	c.InstructorName = ""
	repo.db.tables.courses[c.ID] = c
	repo.db.mu.Unlock()

	return repo.GetCourse(ctx, c.ID, true)
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, withOutline bool) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.tables.course(id, withOutline)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.tables.courses))
	for id := range repo.db.tables.courses {
		c, _ := repo.db.tables.course(id, false)
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
				continue
			}
			if filter.Published != nil && c.IsPublished != *filter.Published {
				continue
			}
		}
		courses = append(courses, c)
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	if len(ordering) > 0 {
		ord := ordering[0]
		sort.SliceStable(courses, func(i, j int) bool {
			a, b := courses[i], courses[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "title":
				return a.Title < b.Title
			case "price":
				return a.Price < b.Price
			case "students_count":
				return a.StudentsCount < b.StudentsCount
			case "updated_at":
				return a.UpdatedAt.Before(b.UpdatedAt)
			default:
				return a.CreatedAt.Before(b.CreatedAt)
			}
		})
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.tables.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = c.Title
	orig.Description = c.Description
	orig.Price = c.Price
	orig.Duration = c.Duration
	orig.ThumbnailURL = c.ThumbnailURL
	orig.IsPublished = c.IsPublished
	orig.UpdatedAt = c.UpdatedAt
	repo.db.tables.courses[c.ID] = orig

	updated, _ := repo.db.tables.course(c.ID, false)
	return updated, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tables.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.tables.deleteCourse(id)
	return nil
}

func (repo *courseRepository) IncrementStudentsCount(_ context.Context, id string, delta int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c, ok := repo.db.tables.courses[id]
	if !ok {
		return course.ErrNotFound
	}
	c.StudentsCount += delta
	if c.StudentsCount < 0 {
		c.StudentsCount = 0
	}
	repo.db.tables.courses[id] = c
	return nil
}
