package analytics

import (
	"time"

	"github.com/jinzhu/now"
)

const (
	monthLabel = "Jan 2006"
	dayLabel   = "Jan 02"
)

var weekConfig = &now.Config{WeekStartDay: time.Monday}

// Window is a half-open calendar range [Start, End).
type Window struct {
	Label string
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Event is a time-stamped value, e.g. an enrollment (Value 1) or a payment amount.
type Event struct {
	At    time.Time
	Value float64
}

type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
	Sum   float64   `json:"sum"`
}

// MonthWindows returns the last n calendar months up to and including the month of t, oldest first.
func MonthWindows(t time.Time, n int) []Window {
	if n <= 0 {
		return []Window{}
	}
	current := now.With(t).BeginningOfMonth()
	windows := make([]Window, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		windows = append(windows, Window{Label: start.Format(monthLabel), Start: start, End: start.AddDate(0, 1, 0)})
	}
	return windows
}

// WeekWindows returns the last n weeks (starting on Monday) up to and including the week of t, oldest first.
func WeekWindows(t time.Time, n int) []Window {
	if n <= 0 {
		return []Window{}
	}
	current := weekConfig.With(t).BeginningOfWeek()
	windows := make([]Window, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, 0, -7*i)
		windows = append(windows, Window{Label: start.Format(dayLabel), Start: start, End: start.AddDate(0, 0, 7)})
	}
	return windows
}

// DayWindows returns the last n days up to and including the day of t, oldest first.
func DayWindows(t time.Time, n int) []Window {
	if n <= 0 {
		return []Window{}
	}
	current := now.With(t).BeginningOfDay()
	windows := make([]Window, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, 0, -i)
		windows = append(windows, Window{Label: start.Format(dayLabel), Start: start, End: start.AddDate(0, 0, 1)})
	}
	return windows
}

// Bucketize counts and sums events per window. There is one bucket per window, in window order,
// zero-filled when no event falls into it.
func Bucketize(events []Event, windows []Window) []Bucket {
	buckets := make([]Bucket, len(windows))
	for i, w := range windows {
		buckets[i] = Bucket{Label: w.Label, Start: w.Start}
	}
	for _, e := range events {
		for i, w := range windows {
			if w.Contains(e.At) {
				buckets[i].Count++
				buckets[i].Sum += e.Value
				break
			}
		}
	}
	for i := range buckets {
		buckets[i].Sum = roundTo(buckets[i].Sum, 2)
	}
	return buckets
}

// Heatmap counts timestamps per day of week (Sunday first) and hour of day.
func Heatmap(times []time.Time) [7][24]int {
	var grid [7][24]int
	for _, t := range times {
		grid[t.Weekday()][t.Hour()]++
	}
	return grid
}
