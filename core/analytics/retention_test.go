package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rates(rc RetentionCohort) []int {
	res := make([]int, 0, len(rc.Retention))
	for _, r := range rc.Retention {
		res = append(res, r.Rate)
	}
	return res
}

func TestRetention(t *testing.T) {
	now := date(2024, time.March, 20, 12)
	enrs := []EnrollmentRecord{
		{UserID: "u1", CourseID: "c1", EnrolledAt: date(2024, time.January, 5, 0)},
		{UserID: "u2", CourseID: "c1", EnrolledAt: date(2024, time.January, 10, 0)},
		{UserID: "u3", CourseID: "c1", EnrolledAt: date(2024, time.March, 1, 0)},
		{UserID: "u4", CourseID: "c1", EnrolledAt: date(2023, time.October, 1, 0)}, // outside the range
	}
	comps := []CompletionRecord{
		{UserID: "u1", CourseID: "c1", CompletedAt: date(2024, time.January, 6, 0)},
		{UserID: "u1", CourseID: "c1", CompletedAt: date(2024, time.January, 20, 0)}, // 15 days later
		{UserID: "u3", CourseID: "c1", CompletedAt: date(2024, time.March, 2, 12)},   // 1.5 days later
		{UserID: "u4", CourseID: "c1", CompletedAt: date(2024, time.March, 2, 12)},
	}

	t.Run("monthly", func(t *testing.T) {
		cohorts := Retention(enrs, comps, now, 3, CohortMonthly)
		require.Len(t, cohorts, 2) // February is empty

		assert.Equal(t, "Jan 2024", cohorts[0].Label)
		assert.Equal(t, 2, cohorts[0].Size)
		assert.Equal(t, []int{50, 50, 50, 0, 0, 0}, rates(cohorts[0]))

		assert.Equal(t, "Mar 2024", cohorts[1].Label)
		assert.Equal(t, 1, cohorts[1].Size)
		assert.Equal(t, []int{100, 0, 0, 0, 0, 0}, rates(cohorts[1]))

		for i, r := range cohorts[0].Retention {
			assert.Equal(t, RetentionHorizons[i], r.Days)
		}
	})

	t.Run("weekly", func(t *testing.T) {
		cohorts := Retention(enrs, comps, now, 1, CohortWeekly)
		require.Len(t, cohorts, 1)
		assert.Equal(t, "Feb 26", cohorts[0].Label)
		assert.Equal(t, 1, cohorts[0].Size)
	})

	t.Run("no enrollments", func(t *testing.T) {
		assert.Empty(t, Retention(nil, nil, now, 6, CohortMonthly))
	})
}
