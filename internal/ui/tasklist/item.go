package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list. Now
// is the instant the overdue marker is evaluated against.
type TaskItem struct {
	Task model.Task
	Now  time.Time
}

func (i TaskItem) FilterValue() string { return i.Task.Title }

func (i TaskItem) Title() string { return i.Task.Title }

// Description returns the due summary shown next to the title.
func (i TaskItem) Description() string {
	next, ok := reminder.NextDue(i.Task)
	if !ok {
		return "no due time"
	}
	return relativeDue(next, i.Now)
}

// Overdue reports whether the item should carry the overdue marker.
func (i TaskItem) Overdue() bool {
	return reminder.IsOverdue(i.Task, i.Now)
}

// TaskDelegate implements list.ItemDelegate for task rows.
type TaskDelegate struct{}

func (d TaskDelegate) Height() int { return 1 }

func (d TaskDelegate) Spacing() int { return 0 }

func (d TaskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task row.
func (d TaskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(ti, index == m.Index()))
}

func renderRow(ti TaskItem, selected bool) string {
	prefix := "○"
	if ti.Task.Completed {
		prefix = "✓"
	}

	badge := ""
	if ti.Task.Recurrence != model.RecurrenceOnce {
		badge = " " + theme.RecurrenceStyle(ti.Task.Recurrence).Render(string(ti.Task.Recurrence))
	}

	due := ""
	if ti.Task.DueAt != nil {
		due = " " + theme.DueStyle.Render(ti.Task.DueAt.Local().Format("Jan 02 15:04"))
	}

	overdue := ""
	if ti.Overdue() {
		overdue = theme.OverdueStyle.Render(" OVERDUE")
	}

	line := fmt.Sprintf("%s %s%s%s%s", prefix, ti.Task.Title, badge, due, overdue)

	if ti.Task.Completed {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// relativeDue describes next relative to now, e.g. "in 5m" or "2h ago".
func relativeDue(next, now time.Time) string {
	d := next.Sub(now)
	if d >= 0 {
		return "due in " + shortDuration(d)
	}
	return "due " + shortDuration(-d) + " ago"
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}
