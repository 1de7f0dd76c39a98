package reminder

import (
	"time"

	"github.com/nhle/remindme/internal/model"
)

// NextDue returns the next instant at which the task becomes actionable.
// The boolean is false when the task will never trigger a reminder: no
// due date, or a completed one-shot task. NextDue never fails.
func NextDue(t model.Task) (time.Time, bool) {
	if t.DueAt == nil || t.DueAt.IsZero() {
		return time.Time{}, false
	}
	if !t.Completed {
		return *t.DueAt, true
	}
	period, ok := t.Recurrence.Period()
	if !ok {
		return time.Time{}, false
	}
	return t.DueAt.Add(period), true
}

// IsOverdue reports whether a non-completed task's next due time is at
// or before now.
func IsOverdue(t model.Task, now time.Time) bool {
	if t.Completed {
		return false
	}
	next, ok := NextDue(t)
	return ok && !next.After(now)
}

// Overdue returns the overdue tasks in input order.
func Overdue(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if IsOverdue(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// Titles returns up to limit titles from tasks, in order.
func Titles(tasks []model.Task, limit int) []string {
	n := len(tasks)
	if limit >= 0 && n > limit {
		n = limit
	}
	titles := make([]string, 0, n)
	for _, t := range tasks[:n] {
		titles = append(titles, t.Title)
	}
	return titles
}
