package analytics

import (
	"math"
	"sort"
	"time"
)

type CourseRecord struct {
	ID            string
	Title         string
	InstructorID  string
	Price         float64
	StudentsCount int
	IsPublished   bool
	CreatedAt     time.Time
}

type EnrollmentRecord struct {
	UserID     string
	CourseID   string
	Progress   int
	EnrolledAt time.Time
}

type CompletionRecord struct {
	UserID      string
	CourseID    string
	CompletedAt time.Time
}

// PaymentRecord is a settled payment.
type PaymentRecord struct {
	CourseID string
	Amount   float64
	PaidAt   time.Time
}

type CourseRevenue struct {
	CourseID string  `json:"course_id"`
	Title    string  `json:"title"`
	Sales    int     `json:"sales"`
	Revenue  float64 `json:"revenue"`
}

type CourseMetrics struct {
	CourseID        string  `json:"course_id"`
	Title           string  `json:"title"`
	IsPublished     bool    `json:"is_published"`
	Students        int     `json:"students"`
	Enrollments     int     `json:"enrollments"`
	CompletionRate  int     `json:"completion_rate"`
	AverageProgress int     `json:"average_progress"`
	DropoutRate     int     `json:"dropout_rate"`
	Revenue         float64 `json:"revenue"`
}

// percent returns 100*part/total rounded half up; 0 when total is 0.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// CompletionRate is the share of enrollments with 100% progress.
func CompletionRate(enrs []EnrollmentRecord) int {
	var n int
	for _, e := range enrs {
		if e.Progress >= 100 {
			n++
		}
	}
	return percent(n, len(enrs))
}

// DropoutRate is the share of enrollments that never completed a lesson.
func DropoutRate(enrs []EnrollmentRecord) int {
	var n int
	for _, e := range enrs {
		if e.Progress == 0 {
			n++
		}
	}
	return percent(n, len(enrs))
}

// AverageProgress is the mean enrollment progress, rounded half up.
func AverageProgress(enrs []EnrollmentRecord) int {
	var sum int
	for _, e := range enrs {
		sum += e.Progress
	}
	return percent(sum, 100*len(enrs))
}

func pairKey(userID, courseID string) string {
	return userID + "/" + courseID
}

// lastCompletions returns the latest completion time per (user, course).
func lastCompletions(comps []CompletionRecord) map[string]time.Time {
	last := make(map[string]time.Time, len(comps))
	for _, c := range comps {
		key := pairKey(c.UserID, c.CourseID)
		if t, ok := last[key]; !ok || c.CompletedAt.After(t) {
			last[key] = c.CompletedAt
		}
	}
	return last
}

// AverageCompletionDays is the mean number of days between enrollment and the last lesson completion
// of completed enrollments, rounded to 1 decimal.
func AverageCompletionDays(enrs []EnrollmentRecord, comps []CompletionRecord) float64 {
	last := lastCompletions(comps)
	var (
		total float64
		n     int
	)
	for _, e := range enrs {
		if e.Progress < 100 {
			continue
		}
		t, ok := last[pairKey(e.UserID, e.CourseID)]
		if !ok || t.Before(e.EnrolledAt) {
			continue
		}
		total += t.Sub(e.EnrolledAt).Hours() / 24
		n++
	}
	if n == 0 {
		return 0
	}
	return roundTo(total/float64(n), 1)
}

// RevenueByCourse sums the payments of each course, highest revenue first.
func RevenueByCourse(courses []CourseRecord, payments []PaymentRecord) []CourseRevenue {
	byCourse := make(map[string]*CourseRevenue, len(courses))
	revenues := make([]*CourseRevenue, 0, len(courses))
	for _, c := range courses {
		cr := &CourseRevenue{CourseID: c.ID, Title: c.Title}
		byCourse[c.ID] = cr
		revenues = append(revenues, cr)
	}
	for _, p := range payments {
		if cr, ok := byCourse[p.CourseID]; ok {
			cr.Sales++
			cr.Revenue += p.Amount
		}
	}

	sort.SliceStable(revenues, func(i, j int) bool { return revenues[i].Revenue > revenues[j].Revenue })
	res := make([]CourseRevenue, 0, len(revenues))
	for _, cr := range revenues {
		cr.Revenue = roundTo(cr.Revenue, 2)
		res = append(res, *cr)
	}
	return res
}

// CourseBreakdown computes the per-course metrics, in courses order.
func CourseBreakdown(courses []CourseRecord, enrs []EnrollmentRecord, payments []PaymentRecord) []CourseMetrics {
	enrsByCourse := make(map[string][]EnrollmentRecord, len(courses))
	for _, e := range enrs {
		enrsByCourse[e.CourseID] = append(enrsByCourse[e.CourseID], e)
	}
	revenue := make(map[string]float64, len(courses))
	for _, p := range payments {
		revenue[p.CourseID] += p.Amount
	}

	metrics := make([]CourseMetrics, 0, len(courses))
	for _, c := range courses {
		ce := enrsByCourse[c.ID]
		metrics = append(metrics, CourseMetrics{
			CourseID:        c.ID,
			Title:           c.Title,
			IsPublished:     c.IsPublished,
			Students:        c.StudentsCount,
			Enrollments:     len(ce),
			CompletionRate:  CompletionRate(ce),
			AverageProgress: AverageProgress(ce),
			DropoutRate:     DropoutRate(ce),
			Revenue:         roundTo(revenue[c.ID], 2),
		})
	}
	return metrics
}
