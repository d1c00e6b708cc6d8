package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/payment"
)

type analyticsReadModel struct {
	db *DB
}

var _ analytics.ReadModel = (*analyticsReadModel)(nil) // interface compliance check

func NewAnalyticsReadModel(db *DB) *analyticsReadModel {
	return &analyticsReadModel{db: db}
}

func (rm *analyticsReadModel) inScope(courseID string, scope analytics.Scope) bool {
	c, ok := rm.db.tables.courses[courseID]
	return ok && (scope.InstructorID == "" || c.InstructorID == scope.InstructorID)
}

func (rm *analyticsReadModel) Courses(_ context.Context, scope analytics.Scope) ([]analytics.CourseRecord, error) {
	rm.db.mu.RLock()
	defer rm.db.mu.RUnlock()

	records := make([]analytics.CourseRecord, 0)
	for id, c := range rm.db.tables.courses {
		if !rm.inScope(id, scope) {
			continue
		}
		records = append(records, analytics.CourseRecord{
			ID:            c.ID,
			Title:         c.Title,
			InstructorID:  c.InstructorID,
			Price:         c.Price,
			StudentsCount: c.StudentsCount,
			IsPublished:   c.IsPublished,
			CreatedAt:     c.CreatedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (rm *analyticsReadModel) Enrollments(_ context.Context, scope analytics.Scope) ([]analytics.EnrollmentRecord, error) {
	rm.db.mu.RLock()
	defer rm.db.mu.RUnlock()

	records := make([]analytics.EnrollmentRecord, 0)
	for _, e := range rm.db.tables.enrollments {
		if rm.inScope(e.CourseID, scope) {
			records = append(records, analytics.EnrollmentRecord{
				UserID:     e.UserID,
				CourseID:   e.CourseID,
				Progress:   e.Progress,
				EnrolledAt: e.CreatedAt,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].EnrolledAt.Before(records[j].EnrolledAt) })
	return records, nil
}

func (rm *analyticsReadModel) Completions(_ context.Context, scope analytics.Scope) ([]analytics.CompletionRecord, error) {
	rm.db.mu.RLock()
	defer rm.db.mu.RUnlock()

	records := make([]analytics.CompletionRecord, 0)
	for _, cl := range rm.db.tables.completions {
		if rm.inScope(cl.CourseID, scope) {
			records = append(records, analytics.CompletionRecord{
				UserID:      cl.UserID,
				CourseID:    cl.CourseID,
				CompletedAt: cl.CreatedAt,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CompletedAt.Before(records[j].CompletedAt) })
	return records, nil
}

func (rm *analyticsReadModel) PaidPayments(_ context.Context, scope analytics.Scope) ([]analytics.PaymentRecord, error) {
	rm.db.mu.RLock()
	defer rm.db.mu.RUnlock()

	records := make([]analytics.PaymentRecord, 0)
	for _, p := range rm.db.tables.payments {
		if p.Status == payment.StatusPaid && rm.inScope(p.CourseID, scope) {
			records = append(records, analytics.PaymentRecord{CourseID: p.CourseID, Amount: p.Amount, PaidAt: p.UpdatedAt})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PaidAt.Before(records[j].PaidAt) })
	return records, nil
}

func (rm *analyticsReadModel) Totals(_ context.Context) (analytics.Totals, error) {
	rm.db.mu.RLock()
	defer rm.db.mu.RUnlock()

	var totals analytics.Totals
	for _, usr := range rm.db.tables.users {
		totals.Users++
		switch usr.Role {
		case core.RoleLearner:
			totals.Learners++
		case core.RoleInstructor:
			totals.Instructors++
		case core.RoleAdmin:
			totals.Admins++
		}
	}
	for _, c := range rm.db.tables.courses {
		totals.Courses++
		if c.IsPublished {
			totals.PublishedCourses++
		}
	}
	for _, e := range rm.db.tables.enrollments {
		totals.Enrollments++
		if e.Progress == 100 {
			totals.CompletedEnrollments++
		}
	}
	for _, p := range rm.db.tables.payments {
		switch p.Status {
		case payment.StatusPaid:
			totals.PaidPayments++
			totals.Revenue += p.Amount
		case payment.StatusPending:
			totals.PendingPayments++
		}
	}
	totals.Revenue = core.RoundCents(totals.Revenue)
	return totals, nil
}
