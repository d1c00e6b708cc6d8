package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/learning"
)

type learningRepository struct {
	db *DB
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *DB) *learningRepository {
	return &learningRepository{db: db}
}

func (t tables) enrollment(userID, courseID string) (learning.Enrollment, bool) {
	for _, e := range t.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			e.CourseTitle = t.courses[e.CourseID].Title
			return e, true
		}
	}
	return learning.Enrollment{}, false
}

func (repo *learningRepository) GetEnrollment(_ context.Context, userID, courseID string) (learning.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.tables.enrollment(userID, courseID); ok {
		return e, nil
	}
	return learning.Enrollment{}, learning.ErrEnrollmentNotFound
}

func (repo *learningRepository) QueryEnrollments(_ context.Context, filter learning.EnrollmentFilter) ([]learning.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]learning.Enrollment, 0)
	for _, e := range repo.db.tables.enrollments {
		if (filter.UserID != "" && e.UserID != filter.UserID) || (filter.CourseID != "" && e.CourseID != filter.CourseID) {
			continue
		}
		e.CourseTitle = repo.db.tables.courses[e.CourseID].Title
		enrs = append(enrs, e)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *learningRepository) CreateEnrollment(_ context.Context, e learning.Enrollment) (learning.Enrollment, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if existing, ok := repo.db.tables.enrollment(e.UserID, e.CourseID); ok {
		return existing, false, nil
	}
	e.ID = uuid.New().String()
	e.CourseTitle = ""
	repo.db.tables.enrollments[e.ID] = e
	e.CourseTitle = repo.db.tables.courses[e.CourseID].Title
	return e, true, nil
}

func (repo *learningRepository) CompletedLessons(_ context.Context, userID, courseID string) ([]learning.CompletedLesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	completed := make([]learning.CompletedLesson, 0)
	for _, cl := range repo.db.tables.completions {
		if cl.UserID == userID && cl.CourseID == courseID {
			completed = append(completed, cl)
		}
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].CreatedAt.Before(completed[j].CreatedAt) })
	return completed, nil
}

func (repo *learningRepository) CompleteLesson(_ context.Context, cl learning.CompletedLesson) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.tables.completions {
		if existing.UserID == cl.UserID && existing.LessonID == cl.LessonID {
			return false, nil
		}
	}
	cl.ID = uuid.New().String()
	repo.db.tables.completions[cl.ID] = cl
	return true, nil
}

func (repo *learningRepository) UncompleteLesson(_ context.Context, userID, lessonID string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, cl := range repo.db.tables.completions {
		if cl.UserID == userID && cl.LessonID == lessonID {
			delete(repo.db.tables.completions, id)
			return true, nil
		}
	}
	return false, nil
}

func (repo *learningRepository) SyncProgress(_ context.Context, enrollmentID string) (learning.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	e, ok := repo.db.tables.enrollments[enrollmentID]
	if !ok {
		return learning.Enrollment{}, learning.ErrEnrollmentNotFound
	}

	lessons := repo.db.tables.lessonIDs(e.CourseID)
	var done int
	for _, cl := range repo.db.tables.completions {
		if cl.UserID == e.UserID && lessons[cl.LessonID] {
			done++
		}
	}
	progress := learning.ComputeProgress(done, len(lessons))
	if status := learning.StatusFor(progress); e.Progress != progress || e.Status != status {
		e.Progress = progress
		e.Status = status
		e.UpdatedAt = time.Now().UTC()
		repo.db.tables.enrollments[e.ID] = e
	}
	e.CourseTitle = repo.db.tables.courses[e.CourseID].Title
	return e, nil
}
