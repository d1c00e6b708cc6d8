package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func TestMonthWindows(t *testing.T) {
	windows := MonthWindows(date(2024, time.March, 15, 10), 3)
	require.Len(t, windows, 3)

	labels := make([]string, 0, len(windows))
	for _, w := range windows {
		labels = append(labels, w.Label)
	}
	assert.Equal(t, []string{"Jan 2024", "Feb 2024", "Mar 2024"}, labels)
	assert.Equal(t, date(2024, time.January, 1, 0), windows[0].Start)
	assert.Equal(t, date(2024, time.February, 1, 0), windows[0].End)
	assert.Equal(t, date(2024, time.April, 1, 0), windows[2].End)

	assert.Empty(t, MonthWindows(date(2024, time.March, 15, 10), 0))
}

func TestWeekWindows(t *testing.T) {
	windows := WeekWindows(date(2024, time.March, 13, 8), 2) // Wednesday
	require.Len(t, windows, 2)
	assert.Equal(t, date(2024, time.March, 4, 0), windows[0].Start)
	assert.Equal(t, date(2024, time.March, 11, 0), windows[1].Start)
	assert.Equal(t, date(2024, time.March, 18, 0), windows[1].End)
	assert.Equal(t, "Mar 11", windows[1].Label)
}

func TestDayWindows(t *testing.T) {
	windows := DayWindows(date(2024, time.March, 1, 23), 3)
	require.Len(t, windows, 3)
	assert.Equal(t, "Feb 28", windows[0].Label)
	assert.Equal(t, "Feb 29", windows[1].Label)
	assert.Equal(t, "Mar 01", windows[2].Label)
	assert.Equal(t, date(2024, time.March, 2, 0), windows[2].End)
}

func TestBucketize(t *testing.T) {
	windows := MonthWindows(date(2024, time.March, 15, 10), 3)

	t.Run("empty input", func(t *testing.T) {
		buckets := Bucketize(nil, windows)
		require.Len(t, buckets, 3)
		for i, b := range buckets {
			assert.Equal(t, windows[i].Label, b.Label)
			assert.Zero(t, b.Count)
			assert.Zero(t, b.Sum)
		}
	})

	t.Run("half-open windows", func(t *testing.T) {
		events := []Event{
			{At: date(2023, time.December, 31, 23), Value: 100}, // before the first window
			{At: date(2024, time.January, 1, 0), Value: 10.5},
			{At: date(2024, time.February, 1, 0), Value: 20},
			{At: date(2024, time.February, 29, 23), Value: 0.25},
			{At: date(2024, time.March, 31, 23), Value: 1},
			{At: date(2024, time.April, 1, 0), Value: 100}, // after the last window
		}
		buckets := Bucketize(events, windows)
		require.Len(t, buckets, 3)
		assert.Equal(t, 1, buckets[0].Count)
		assert.Equal(t, 10.5, buckets[0].Sum)
		assert.Equal(t, 2, buckets[1].Count)
		assert.Equal(t, 20.25, buckets[1].Sum)
		assert.Equal(t, 1, buckets[2].Count)
		assert.Equal(t, 1.0, buckets[2].Sum)
	})
}

func TestHeatmap(t *testing.T) {
	grid := Heatmap([]time.Time{
		date(2024, time.March, 10, 14), // Sunday
		date(2024, time.March, 10, 14),
		date(2024, time.March, 11, 9), // Monday
	})
	assert.Equal(t, 2, grid[time.Sunday][14])
	assert.Equal(t, 1, grid[time.Monday][9])

	var total int
	for _, day := range grid {
		for _, n := range day {
			total += n
		}
	}
	assert.Equal(t, 3, total)
}
