package taskform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/theme"
)

// Accepted due time layouts, in the local zone.
const (
	layoutDateTime = "2006-01-02 15:04"
	layoutDate     = "2006-01-02"
)

var errBadDue = errors.New("invalid due time, use YYYY-MM-DD HH:MM or YYYY-MM-DD")

// SubmitMsg is dispatched when the form completes. ID is empty for a
// new task.
type SubmitMsg struct {
	ID         string
	Title      string
	DueAt      *time.Time
	Recurrence model.Recurrence
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title      string
	due        string
	recurrence model.Recurrence
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editID   string
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{recurrence: model.RecurrenceOnce},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.fb.title = ""
	m.fb.due = ""
	m.fb.recurrence = model.RecurrenceOnce
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with an existing task's fields.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.editID = t.ID
	m.fb.title = t.Title
	m.fb.due = FormatDue(t.DueAt)
	m.fb.recurrence = t.Recurrence
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.handleSubmit()
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewInput().
				Title("Due").
				Placeholder("YYYY-MM-DD HH:MM (optional)").
				Value(&m.fb.due).
				Validate(validateDue),
			huh.NewSelect[model.Recurrence]().
				Title("Repeat").
				Options(
					huh.NewOption("Once", model.RecurrenceOnce),
					huh.NewOption("Daily", model.RecurrenceDaily),
					huh.NewOption("Weekly", model.RecurrenceWeekly),
				).
				Value(&m.fb.recurrence),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	due, err := ParseDue(m.fb.due, time.Local)
	if err != nil {
		// Validation already rejected this input.
		due = nil
	}

	msg := SubmitMsg{
		Title:      strings.TrimSpace(m.fb.title),
		DueAt:      due,
		Recurrence: m.fb.recurrence,
	}
	if m.editMode {
		msg.ID = m.editID
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// ParseDue reads a due time typed by the user. An empty string means no
// due time.
func ParseDue(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{layoutDateTime, layoutDate} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, errBadDue
}

// FormatDue is the inverse of ParseDue for prefilling the edit form.
func FormatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(layoutDateTime)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDue(s string) error {
	_, err := ParseDue(s, time.Local)
	return err
}
