package learning

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrNotEnrolled        = core.NewPermissionError("you are not enrolled in this course")
)

type (
	Repository interface {
		GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
		// CreateEnrollment inserts e unless the user is already enrolled in the course.
		// created reports whether a row was inserted.
		CreateEnrollment(ctx context.Context, e Enrollment) (enr Enrollment, created bool, err error)
		CompletedLessons(ctx context.Context, userID, courseID string) ([]CompletedLesson, error)
		// CompleteLesson records a completion; it is a no-op if it already exists.
		CompleteLesson(ctx context.Context, cl CompletedLesson) (bool, error)
		// UncompleteLesson deletes a completion and reports whether one existed.
		UncompleteLesson(ctx context.Context, userID, lessonID string) (bool, error)
		// SyncProgress recomputes the enrollment progress from the completed lessons of its course
		// with a single conditional update, and returns the up-to-date enrollment.
		SyncProgress(ctx context.Context, enrollmentID string) (Enrollment, error)
	}

	CourseReader interface {
		GetCourse(ctx context.Context, id string, withOutline bool) (course.Course, error)
	}

	Service struct {
		repo    Repository
		courses CourseReader
		tx      core.TxRunner
	}
)

func NewService(repo Repository, courses CourseReader, tx core.TxRunner) *Service {
	return &Service{repo: repo, courses: courses, tx: tx}
}

func (svc *Service) getEnrollment(ctx context.Context, actor core.Identity, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Enrollment{}, ErrNotEnrolled
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

func (svc *Service) completedSet(ctx context.Context, userID, courseID string) (map[string]bool, error) {
	completed, err := svc.repo.CompletedLessons(ctx, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting completed lessons")
	}
	set := make(map[string]bool, len(completed))
	for _, cl := range completed {
		set[cl.LessonID] = true
	}
	return set, nil
}

// Enroll enrolls userID in courseID. It is a no-op when already enrolled; created reports
// whether a new enrollment was made.
func (svc *Service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, bool, error) {
	now := time.Now().UTC()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Progress:  0,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ListEnrollments returns the caller's enrollments with reconciled progress.
func (svc *Service) ListEnrollments(ctx context.Context, actor core.Identity) ([]Enrollment, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{UserID: actor.UserID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for i, enr := range enrs {
		synced, err := svc.repo.SyncProgress(ctx, enr.ID)
		if err != nil {
			return nil, errors.Wrap(err, "syncing progress")
		}
		synced.CourseTitle = enr.CourseTitle
		enrs[i] = synced
	}
	return enrs, nil
}

// CourseProgress returns the caller's view of an enrolled course: outline, completions and progress.
func (svc *Service) CourseProgress(ctx context.Context, actor core.Identity, courseID string) (CourseProgress, error) {
	enr, err := svc.getEnrollment(ctx, actor, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	c, err := svc.courses.GetCourse(ctx, courseID, true)
	if err != nil {
		return CourseProgress{}, err
	}
	done, err := svc.completedSet(ctx, actor.UserID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	if enr, err = svc.repo.SyncProgress(ctx, enr.ID); err != nil {
		return CourseProgress{}, errors.Wrap(err, "syncing progress")
	}

	cp := CourseProgress{
		Enrollment:   enr,
		TotalLessons: c.LessonCount(),
		Sections:     make([]SectionProgress, 0, len(c.Sections)),
	}
	for _, s := range c.Outline().Sections {
		sp := SectionProgress{ID: s.ID, Title: s.Title, Position: s.Position, Lessons: make([]LessonState, 0, len(s.Lessons))}
		for _, l := range s.Lessons {
			sp.Lessons = append(sp.Lessons, LessonState{Lesson: l, Completed: done[l.ID]})
			if done[l.ID] {
				cp.CompletedLessons++
			}
		}
		cp.Sections = append(cp.Sections, sp)
	}
	c.Sections = nil
	cp.Course = c
	cp.Progress = enr.Progress
	cp.CertificateAvailable = enr.Progress == 100
	return cp, nil
}

// GetLesson returns a lesson of an enrolled course with its previous and next lessons.
func (svc *Service) GetLesson(ctx context.Context, actor core.Identity, courseID, lessonID string) (LessonView, error) {
	enr, err := svc.getEnrollment(ctx, actor, courseID)
	if err != nil {
		return LessonView{}, err
	}
	c, err := svc.courses.GetCourse(ctx, courseID, true)
	if err != nil {
		return LessonView{}, err
	}

	lessons := c.Lessons()
	idx := -1
	for i, l := range lessons {
		if l.ID == lessonID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return LessonView{}, course.ErrLessonNotFound
	}

	done, err := svc.completedSet(ctx, actor.UserID, courseID)
	if err != nil {
		return LessonView{}, err
	}
	if enr, err = svc.repo.SyncProgress(ctx, enr.ID); err != nil {
		return LessonView{}, errors.Wrap(err, "syncing progress")
	}

	lesson := lessons[idx]
	section, _ := c.Section(lesson.SectionID)
	section.Lessons = nil
	view := LessonView{
		CourseID:    c.ID,
		CourseTitle: c.Title,
		Section:     section,
		Lesson:      lesson,
		Completed:   done[lesson.ID],
		Progress:    enr.Progress,
	}
	if idx > 0 {
		view.PrevLessonID = lessons[idx-1].ID
	}
	if idx < len(lessons)-1 {
		view.NextLessonID = lessons[idx+1].ID
	}
	return view, nil
}

// ToggleLesson flips the completion of a lesson for the caller and reconciles the enrollment progress.
func (svc *Service) ToggleLesson(ctx context.Context, actor core.Identity, courseID, lessonID string) (ToggleResult, error) {
	enr, err := svc.getEnrollment(ctx, actor, courseID)
	if err != nil {
		return ToggleResult{}, err
	}
	c, err := svc.courses.GetCourse(ctx, courseID, true)
	if err != nil {
		return ToggleResult{}, err
	}
	var found bool
	for _, l := range c.Lessons() {
		if l.ID == lessonID {
			found = true
			break
		}
	}
	if !found {
		return ToggleResult{}, course.ErrLessonNotFound
	}

	res := ToggleResult{LessonID: lessonID}
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		removed, err := svc.repo.UncompleteLesson(ctx, actor.UserID, lessonID)
		if err != nil {
			return errors.Wrap(err, "uncompleting lesson")
		}
		if !removed {
			if _, err = svc.repo.CompleteLesson(ctx, CompletedLesson{
				UserID:    actor.UserID,
				LessonID:  lessonID,
				CourseID:  courseID,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return errors.Wrap(err, "completing lesson")
			}
		}
		res.Completed = !removed

		synced, err := svc.repo.SyncProgress(ctx, enr.ID)
		if err != nil {
			return errors.Wrap(err, "syncing progress")
		}
		res.Progress = synced.Progress
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return res, nil
}
