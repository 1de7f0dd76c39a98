package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/theme"
)

// CommandMsg is emitted when the user executes a command line that
// parsed successfully.
type CommandMsg struct {
	Command Command
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "add Pay rent @2025-03-15 09:00 !weekly"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		cmd, err := Parse(line)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.input.Reset()
		return m, func() tea.Msg { return CommandMsg{Command: cmd} }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{
		titleStyle.Render("Command"),
		m.input.View(),
	}
	if m.err != nil {
		parts = append(parts, theme.OverdueStyle.Render(m.err.Error()))
	}
	parts = append(parts, "", theme.HelpStyle.Render(usage))

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus clears the previous line and gives keyboard focus to the input.
func (m *Model) Focus() tea.Cmd {
	m.err = nil
	m.input.Reset()
	return m.input.Focus()
}
