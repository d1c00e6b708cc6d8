package learning

// ComputeProgress returns the completion percentage of a course, rounded half up.
// A course without lessons has no progress.
func ComputeProgress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return (200*completed + total) / (2 * total)
}

// StatusFor returns the enrollment status matching progress.
func StatusFor(progress int) string {
	if progress >= 100 {
		return StatusCompleted
	}
	return StatusActive
}
