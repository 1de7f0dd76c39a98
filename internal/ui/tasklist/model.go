package tasklist

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/keys"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/theme"
)

// Model is the main task list view. It holds no store reference; the
// root model pushes snapshots in with SetTasks.
type Model struct {
	list          list.Model
	keys          *keys.KeyMap
	tasks         []model.Task
	now           time.Time
	showCompleted bool
	width         int
	height        int
}

// New creates a new task list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, TaskDelegate{}, width, height)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:          l,
		keys:          k,
		showCompleted: true,
		width:         width,
		height:        height,
	}
}

// Update delegates navigation keys to the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetTasks replaces the displayed snapshot. The cursor stays on the
// same task when it is still visible.
func (m *Model) SetTasks(tasks []model.Task, now time.Time) tea.Cmd {
	m.tasks = tasks
	m.now = now
	return m.rebuild()
}

// ToggleShowCompleted shows or hides completed tasks.
func (m *Model) ToggleShowCompleted() tea.Cmd {
	m.showCompleted = !m.showCompleted
	return m.rebuild()
}

func (m *Model) ShowCompleted() bool { return m.showCompleted }

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

func (m *Model) rebuild() tea.Cmd {
	selected, hadSelection := m.SelectedTask()

	items := make([]list.Item, 0, len(m.tasks))
	cursor := 0
	for _, t := range m.tasks {
		if t.Completed && !m.showCompleted {
			continue
		}
		if hadSelection && t.ID == selected.ID {
			cursor = len(items)
		}
		items = append(items, TaskItem{Task: t, Now: m.now})
	}

	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(cursor)
	}
	return cmd
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.tasks) > 0 {
		return style.Render("All tasks are done.\nPress H to show completed tasks.")
	}
	return style.Render("No tasks yet.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
