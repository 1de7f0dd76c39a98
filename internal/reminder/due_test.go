package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/remindme/internal/model"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestNextDue_NoDueAt(t *testing.T) {
	_, ok := NextDue(model.Task{ID: "a", Recurrence: model.RecurrenceDaily})
	assert.False(t, ok)
}

func TestNextDue_OpenTaskUsesDueAt(t *testing.T) {
	next, ok := NextDue(model.Task{DueAt: at(base), Recurrence: model.RecurrenceWeekly})
	assert.True(t, ok)
	assert.Equal(t, base, next)
}

func TestNextDue_CompletedOnce(t *testing.T) {
	_, ok := NextDue(model.Task{DueAt: at(base), Completed: true, Recurrence: model.RecurrenceOnce})
	assert.False(t, ok)
}

func TestNextDue_CompletedDaily(t *testing.T) {
	next, ok := NextDue(model.Task{DueAt: at(base), Completed: true, Recurrence: model.RecurrenceDaily})
	assert.True(t, ok)
	assert.Equal(t, int64(86_400_000), next.Sub(base).Milliseconds())
}

func TestNextDue_CompletedWeekly(t *testing.T) {
	next, ok := NextDue(model.Task{DueAt: at(base), Completed: true, Recurrence: model.RecurrenceWeekly})
	assert.True(t, ok)
	assert.Equal(t, int64(604_800_000), next.Sub(base).Milliseconds())
}

func TestIsOverdue_Boundaries(t *testing.T) {
	task := model.Task{DueAt: at(base)}

	assert.False(t, IsOverdue(task, base.Add(-time.Millisecond)))
	assert.True(t, IsOverdue(task, base))
	assert.True(t, IsOverdue(task, base.Add(time.Millisecond)))
}

func TestIsOverdue_CompletedNeverOverdue(t *testing.T) {
	task := model.Task{DueAt: at(base), Completed: true, Recurrence: model.RecurrenceDaily}
	assert.False(t, IsOverdue(task, base.Add(30*24*time.Hour)))
}

func TestIsOverdue_NoDueAt(t *testing.T) {
	assert.False(t, IsOverdue(model.Task{Title: "someday"}, base))
}

func TestOverdue_KeepsInputOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Title: "late", DueAt: at(base.Add(-time.Hour))},
		{ID: "2", Title: "future", DueAt: at(base.Add(time.Hour))},
		{ID: "3", Title: "done", DueAt: at(base.Add(-time.Hour)), Completed: true},
		{ID: "4", Title: "also late", DueAt: at(base.Add(-time.Minute))},
	}

	got := Overdue(tasks, base)

	assert.Equal(t, []string{"late", "also late"}, Titles(got, -1))
}

func TestTitles_Limit(t *testing.T) {
	tasks := []model.Task{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}}

	assert.Equal(t, []string{"a", "b", "c"}, Titles(tasks, 3))
	assert.Equal(t, []string{"a", "b", "c", "d"}, Titles(tasks, 10))
	assert.Empty(t, Titles(nil, 3))
}

func TestInterval(t *testing.T) {
	t.Run("future due time", func(t *testing.T) {
		task := model.Task{DueAt: at(base.Add(10 * time.Minute))}
		assert.Equal(t, 10*time.Minute, Interval(task, base))
	})
	t.Run("clamped to minimum", func(t *testing.T) {
		task := model.Task{DueAt: at(base.Add(5 * time.Second))}
		assert.Equal(t, MinInterval, Interval(task, base))
	})
	t.Run("past due clamps too", func(t *testing.T) {
		task := model.Task{DueAt: at(base.Add(-time.Hour))}
		assert.Equal(t, MinInterval, Interval(task, base))
	})
	t.Run("no due time", func(t *testing.T) {
		assert.Equal(t, DefaultInterval, Interval(model.Task{}, base))
	})
}
