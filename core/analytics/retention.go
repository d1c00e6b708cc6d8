package analytics

import (
	"time"
)

// Cohort granularities
const (
	CohortMonthly = "monthly"
	CohortWeekly  = "weekly"
)

// RetentionHorizons are the day offsets retention is measured at.
var RetentionHorizons = []int{1, 7, 14, 30, 60, 90}

type RetentionRate struct {
	Days     int `json:"days"`
	Retained int `json:"retained"`
	Rate     int `json:"rate"`
}

type RetentionCohort struct {
	Label     string          `json:"label"`
	Start     time.Time       `json:"start"`
	Size      int             `json:"size"`
	Retention []RetentionRate `json:"retention"`
}

// cohortWindows returns the cohort windows covering the last `months` calendar months up to t.
func cohortWindows(t time.Time, months int, cohort string) []Window {
	monthly := MonthWindows(t, months)
	if cohort != CohortWeekly || len(monthly) == 0 {
		return monthly
	}
	first := weekConfig.With(monthly[0].Start).BeginningOfWeek()
	current := weekConfig.With(t).BeginningOfWeek()
	weeks := int(current.Sub(first).Hours()/(24*7)+0.5) + 1
	return WeekWindows(t, weeks)
}

// Retention groups enrollments into cohorts by enrollment month (or week) and measures,
// for every horizon h, the share of the cohort having completed a lesson at least h whole days
// after enrolling. Empty cohorts are left out; cohorts are sorted oldest first.
func Retention(enrs []EnrollmentRecord, comps []CompletionRecord, t time.Time, months int, cohort string) []RetentionCohort {
	windows := cohortWindows(t, months, cohort)
	last := lastCompletions(comps)

	sizes := make([]int, len(windows))
	retained := make([][]int, len(windows))
	for i := range retained {
		retained[i] = make([]int, len(RetentionHorizons))
	}

	for _, e := range enrs {
		idx := -1
		for i, w := range windows {
			if w.Contains(e.EnrolledAt) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		sizes[idx]++

		lc, ok := last[pairKey(e.UserID, e.CourseID)]
		if !ok || !lc.After(e.EnrolledAt) {
			continue
		}
		days := int(lc.Sub(e.EnrolledAt).Hours() / 24)
		for h, horizon := range RetentionHorizons {
			if days >= horizon {
				retained[idx][h]++
			}
		}
	}

	cohorts := make([]RetentionCohort, 0, len(windows))
	for i, w := range windows {
		if sizes[i] == 0 {
			continue
		}
		rc := RetentionCohort{
			Label:     w.Label,
			Start:     w.Start,
			Size:      sizes[i],
			Retention: make([]RetentionRate, 0, len(RetentionHorizons)),
		}
		for h, horizon := range RetentionHorizons {
			rc.Retention = append(rc.Retention, RetentionRate{
				Days:     horizon,
				Retained: retained[i][h],
				Rate:     percent(retained[i][h], sizes[i]),
			})
		}
		cohorts = append(cohorts, rc)
	}
	return cohorts
}
