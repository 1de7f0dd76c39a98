package detail

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/keys"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

const timeLayout = "Mon 2006-01-02 15:04"

// Model is the task detail view.
type Model struct {
	task     *model.Task
	now      time.Time
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// SetTask shows t as of now. Calling it again with a newer snapshot of
// the same task keeps the scroll position.
func (m *Model) SetTask(t model.Task, now time.Time) {
	same := m.task != nil && m.task.ID == t.ID
	m.task = &t
	m.now = now
	m.viewport.SetContent(m.renderContent())
	if !same {
		m.viewport.GotoTop()
	}
}

// Clear drops the shown task, e.g. after it was deleted.
func (m *Model) Clear() {
	m.task = nil
}

// TaskID returns the ID of the shown task, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No task selected")
	}
	return m.viewport.View()
}

func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}
	t := *m.task

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(16)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	status := "open"
	statusStyle := theme.DueStyle
	switch {
	case t.Completed:
		status, statusStyle = "done", theme.DimmedStyle.Strikethrough(false)
	case reminder.IsOverdue(t, m.now):
		status, statusStyle = "overdue", theme.OverdueStyle
	}

	sections := []string{
		titleStyle.Render(t.Title),
		lipgloss.JoinHorizontal(lipgloss.Top,
			statusStyle.Render(strings.ToUpper(status)), "  ",
			theme.RecurrenceStyle(t.Recurrence).Render(string(t.Recurrence)),
		),
		"",
	}

	row := func(label, value string) {
		sections = append(sections, metaStyle.Render(label)+valStyle.Render(value))
	}

	row("Due:", formatTime(t.DueAt, "none"))
	if next, ok := reminder.NextDue(t); ok && t.Completed && t.Recurrence != model.RecurrenceOnce {
		row("Next due:", next.Local().Format(timeLayout))
	}
	if !t.Completed {
		row("Reminds every:", reminder.Interval(t, m.now).Round(time.Second).String())
	}
	row("Last reminded:", formatTime(t.LastRemindedAt, "never"))
	row("ID:", t.ID)

	return strings.Join(sections, "\n")
}

func formatTime(t *time.Time, empty string) string {
	if t == nil {
		return empty
	}
	return t.Local().Format(timeLayout)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
