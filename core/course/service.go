package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course not found")
	ErrLessonNotFound = core.NewNotFoundError("lesson not found")
	ErrInstructorOnly = core.NewPermissionError("only instructors can manage courses")
	ErrNotCourseOwner = core.NewPermissionError("you can only manage your own courses")
	errAdminRequired  = core.NewPermissionError("permission denied")
	errTitleRequired  = core.NewValidationError(errors.New("title is required"), core.FieldError{Field: "title", Error: "this field is required"})
)

var (
	publishedOnly         = true
	defaultCourseOrdering = []core.DBOrdering{{Field: "created_at"}}
)

type (
	Repository interface {
		// CreateCourse inserts the course along with its sections and lessons.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse returns the course; withOutline loads sections and lessons, sorted by position.
		GetCourse(ctx context.Context, id string, withOutline bool) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		// IncrementStudentsCount adds delta to the denormalized course students_count.
		IncrementStudentsCount(ctx context.Context, id string, delta int) error
	}

	Service struct {
		repo Repository
		tx   core.TxRunner
	}
)

func NewService(repo Repository, tx core.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// Create adds an unpublished course with its outline.
// Blank section and lesson titles are skipped; positions follow the given order.
func (svc *Service) Create(ctx context.Context, actor core.Identity, nc NewCourse) (Course, error) {
	if !actor.CanTeach() {
		return Course{}, ErrInstructorOnly
	}

	now := time.Now().UTC()
	c := Course{
		Title:         nc.Title,
		Description:   nc.Description,
		Price:         core.RoundCents(nc.Price),
		Duration:      nc.Duration,
		ThumbnailURL:  nc.ThumbnailURL,
		IsPublished:   false,
		InstructorID:  actor.UserID,
		StudentsCount: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, ns := range nc.Sections {
		if ns.Title == "" {
			continue
		}
		s := Section{Title: ns.Title, Position: len(c.Sections)}
		for _, nl := range ns.Lessons {
			if nl.Title == "" {
				continue
			}
			s.Lessons = append(s.Lessons, Lesson{
				Title:    nl.Title,
				Content:  nl.Content,
				VideoURL: nl.VideoURL,
				Duration: nl.Duration,
				Position: len(s.Lessons),
			})
		}
		c.Sections = append(c.Sections, s)
	}

	var created Course
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = svc.repo.CreateCourse(ctx, c)
		return err
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return created, nil
}

// Update changes the course metadata. Only its instructor or an admin may update it.
func (svc *Service) Update(ctx context.Context, actor core.Identity, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id, false)
	if err != nil {
		return Course{}, err
	}
	if !c.CanEdit(actor) {
		return Course{}, ErrNotCourseOwner
	}

	if uc.Title != nil {
		if *uc.Title == "" {
			return Course{}, errTitleRequired
		}
		c.Title = *uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Price != nil {
		c.Price = core.RoundCents(*uc.Price)
	}
	if uc.Duration != nil {
		c.Duration = *uc.Duration
	}
	if uc.ThumbnailURL != nil {
		c.ThumbnailURL = *uc.ThumbnailURL
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

// ListPublished returns the published catalogue.
func (svc *Service) ListPublished(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Published = &publishedOnly
	ordering = core.CleanOrdering(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = defaultCourseOrdering
	}
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// GetPublished returns a published course with its outline; lesson contents are left out.
func (svc *Service) GetPublished(ctx context.Context, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id, true)
	if err != nil {
		return Course{}, err
	}
	if !c.IsPublished {
		return Course{}, ErrNotFound
	}
	return c.Outline(), nil
}

// ListOwn returns the courses authored by the caller.
func (svc *Service) ListOwn(ctx context.Context, actor core.Identity) ([]Course, error) {
	if !actor.CanTeach() {
		return nil, ErrInstructorOnly
	}
	return svc.repo.QueryCourses(ctx, &QueryFilter{InstructorID: actor.UserID}, defaultCourseOrdering)
}

// ListAll returns every course, published or not. Admins only.
func (svc *Service) ListAll(ctx context.Context, actor core.Identity, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if !actor.IsAdmin() {
		return nil, errAdminRequired
	}
	ordering = core.CleanOrdering(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = defaultCourseOrdering
	}
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// SetPublished publishes or unpublishes a course. Admins only.
func (svc *Service) SetPublished(ctx context.Context, actor core.Identity, id string, published bool) (Course, error) {
	if !actor.IsAdmin() {
		return Course{}, errAdminRequired
	}
	c, err := svc.repo.GetCourse(ctx, id, false)
	if err != nil {
		return Course{}, err
	}
	c.IsPublished = published
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

// Delete removes a course and everything attached to it. Admins only.
func (svc *Service) Delete(ctx context.Context, actor core.Identity, id string) error {
	if !actor.IsAdmin() {
		return errAdminRequired
	}
	return svc.repo.DeleteCourse(ctx, id)
}
