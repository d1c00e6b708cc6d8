package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrInstructorOnly = core.NewPermissionError("only instructors can view course analytics")
	errAdminRequired  = core.NewPermissionError("permission denied")
)

const (
	defaultMonths = 6
	defaultDays   = 30
	maxMonths     = 24
	maxDays       = 365
)

// Scope restricts analytics to the courses of an instructor; the zero Scope covers all courses.
type Scope struct {
	InstructorID string
}

type Totals struct {
	Users                int     `json:"users"`
	Learners             int     `json:"learners"`
	Instructors          int     `json:"instructors"`
	Admins               int     `json:"admins"`
	Courses              int     `json:"courses"`
	PublishedCourses     int     `json:"published_courses"`
	Enrollments          int     `json:"enrollments"`
	CompletedEnrollments int     `json:"completed_enrollments"`
	PaidPayments         int     `json:"paid_payments"`
	PendingPayments      int     `json:"pending_payments"`
	Revenue              float64 `json:"revenue"`
}

// ReadModel loads the raw rows analytics are computed from.
type ReadModel interface {
	Courses(ctx context.Context, scope Scope) ([]CourseRecord, error)
	Enrollments(ctx context.Context, scope Scope) ([]EnrollmentRecord, error)
	Completions(ctx context.Context, scope Scope) ([]CompletionRecord, error)
	// PaidPayments returns the settled payments only.
	PaidPayments(ctx context.Context, scope Scope) ([]PaymentRecord, error)
	Totals(ctx context.Context) (Totals, error)
}

type Options struct {
	Months int    `query:"months"`
	Days   int    `query:"days"`
	Cohort string `query:"cohort"`
}

func (o *Options) Clean() {
	if o.Months <= 0 {
		o.Months = defaultMonths
	} else if o.Months > maxMonths {
		o.Months = maxMonths
	}
	if o.Days <= 0 {
		o.Days = defaultDays
	} else if o.Days > maxDays {
		o.Days = maxDays
	}
	if o.Cohort != CohortWeekly {
		o.Cohort = CohortMonthly
	}
}

type Summary struct {
	TotalCourses          int     `json:"total_courses"`
	TotalStudents         int     `json:"total_students"`
	TotalEnrollments      int     `json:"total_enrollments"`
	TotalRevenue          float64 `json:"total_revenue"`
	CompletionRate        int     `json:"completion_rate"`
	AverageProgress       int     `json:"average_progress"`
	DropoutRate           int     `json:"dropout_rate"`
	AverageCompletionDays float64 `json:"average_completion_days"`
}

type Dashboard struct {
	Summary         Summary           `json:"summary"`
	Enrollments     []Bucket          `json:"enrollments"` // monthly
	Revenue         []Bucket          `json:"revenue"`     // monthly
	Completions     []Bucket          `json:"completions"` // daily
	ActivityHeatmap [7][24]int        `json:"activity_heatmap"`
	Courses         []CourseMetrics   `json:"courses"`
	RevenueByCourse []CourseRevenue   `json:"revenue_by_course"`
	Retention       []RetentionCohort `json:"retention"`
}

type Overview struct {
	Totals      Totals   `json:"totals"`
	Enrollments []Bucket `json:"enrollments"` // monthly
	Revenue     []Bucket `json:"revenue"`     // monthly
}

type Service struct {
	rm      ReadModel
	nowFunc func() time.Time
}

func NewService(rm ReadModel) *Service {
	return &Service{rm: rm, nowFunc: time.Now}
}

// InstructorDashboard computes the analytics of the caller's courses; admins see all courses.
func (svc *Service) InstructorDashboard(ctx context.Context, actor core.Identity, opts Options) (Dashboard, error) {
	if !actor.CanTeach() {
		return Dashboard{}, ErrInstructorOnly
	}
	opts.Clean()
	var scope Scope
	if !actor.IsAdmin() {
		scope.InstructorID = actor.UserID
	}

	courses, err := svc.rm.Courses(ctx, scope)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "loading courses")
	}
	enrs, err := svc.rm.Enrollments(ctx, scope)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "loading enrollments")
	}
	comps, err := svc.rm.Completions(ctx, scope)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "loading completions")
	}
	payments, err := svc.rm.PaidPayments(ctx, scope)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "loading payments")
	}

	now := svc.nowFunc().UTC()
	months := MonthWindows(now, opts.Months)

	students := make(map[string]bool, len(enrs))
	for _, e := range enrs {
		students[e.UserID] = true
	}
	var revenue float64
	for _, p := range payments {
		revenue += p.Amount
	}
	completionTimes := make([]time.Time, 0, len(comps))
	for _, c := range comps {
		completionTimes = append(completionTimes, c.CompletedAt)
	}

	return Dashboard{
		Summary: Summary{
			TotalCourses:          len(courses),
			TotalStudents:         len(students),
			TotalEnrollments:      len(enrs),
			TotalRevenue:          roundTo(revenue, 2),
			CompletionRate:        CompletionRate(enrs),
			AverageProgress:       AverageProgress(enrs),
			DropoutRate:           DropoutRate(enrs),
			AverageCompletionDays: AverageCompletionDays(enrs, comps),
		},
		Enrollments:     Bucketize(enrollmentEvents(enrs), months),
		Revenue:         Bucketize(paymentEvents(payments), months),
		Completions:     Bucketize(completionEvents(comps), DayWindows(now, opts.Days)),
		ActivityHeatmap: Heatmap(completionTimes),
		Courses:         CourseBreakdown(courses, enrs, payments),
		RevenueByCourse: RevenueByCourse(courses, payments),
		Retention:       Retention(enrs, comps, now, opts.Months, opts.Cohort),
	}, nil
}

// AdminOverview computes the platform totals and monthly trends. Admins only.
func (svc *Service) AdminOverview(ctx context.Context, actor core.Identity, opts Options) (Overview, error) {
	if !actor.IsAdmin() {
		return Overview{}, errAdminRequired
	}
	opts.Clean()

	totals, err := svc.rm.Totals(ctx)
	if err != nil {
		return Overview{}, errors.Wrap(err, "loading totals")
	}
	enrs, err := svc.rm.Enrollments(ctx, Scope{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "loading enrollments")
	}
	payments, err := svc.rm.PaidPayments(ctx, Scope{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "loading payments")
	}

	months := MonthWindows(svc.nowFunc().UTC(), opts.Months)
	return Overview{
		Totals:      totals,
		Enrollments: Bucketize(enrollmentEvents(enrs), months),
		Revenue:     Bucketize(paymentEvents(payments), months),
	}, nil
}

func enrollmentEvents(enrs []EnrollmentRecord) []Event {
	events := make([]Event, 0, len(enrs))
	for _, e := range enrs {
		events = append(events, Event{At: e.EnrolledAt, Value: 1})
	}
	return events
}

func completionEvents(comps []CompletionRecord) []Event {
	events := make([]Event, 0, len(comps))
	for _, c := range comps {
		events = append(events, Event{At: c.CompletedAt, Value: 1})
	}
	return events
}

func paymentEvents(payments []PaymentRecord) []Event {
	events := make([]Event, 0, len(payments))
	for _, p := range payments {
		events = append(events, Event{At: p.PaidAt, Value: p.Amount})
	}
	return events
}
